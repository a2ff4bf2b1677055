package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"cold-storage-marketplace/internal/models"
)

// TemplateManager holds the parsed email and receipt templates.
type TemplateManager struct {
	WelcomeTmpl *template.Template
	ReceiptTmpl *template.Template
}

var templateFuncs = template.FuncMap{
	"date": func(r models.Receipt) string { return r.IssuedAt.Format("02 Jan 2006 15:04") },
}

// NewTemplateManager parses all templates at startup.
func NewTemplateManager() (*TemplateManager, error) {
	welcomeTmpl, err := template.New("welcome").Parse(welcomeTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse welcome template: %w", err)
	}

	receiptTmpl, err := template.New("receipt").Funcs(templateFuncs).Parse(receiptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}

	return &TemplateManager{
		WelcomeTmpl: welcomeTmpl,
		ReceiptTmpl: receiptTmpl,
	}, nil
}

// TemplateData holds the dynamic data for the welcome email.
type TemplateData struct {
	Name string
	Link string
}

func (tm *TemplateManager) GenerateWelcomeEmailHTML(data TemplateData) (string, error) {
	var body bytes.Buffer
	if err := tm.WelcomeTmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// GenerateReceiptHTML renders the printable receipt. The same page is mailed and
// served by the receipt endpoint.
func (tm *TemplateManager) GenerateReceiptHTML(receipt models.Receipt) (string, error) {
	var body bytes.Buffer
	if err := tm.ReceiptTmpl.Execute(&body, receipt); err != nil {
		return "", err
	}
	return body.String(), nil
}

// ReceiptSubject is the mail subject line for a receipt.
func ReceiptSubject(receipt models.Receipt) string {
	if receipt.Kind == "logistics" {
		return "Your logistics plan is active - " + receipt.Reference
	}
	return "Booking confirmed - " + receipt.Reference
}

// ReceiptPlainText is the text/plain alternative of the receipt mail.
func ReceiptPlainText(receipt models.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", receipt.CustomerName)
	fmt.Fprintf(&b, "Payment received for %s.\n", receipt.Item)
	fmt.Fprintf(&b, "Reference: %s\n", receipt.Reference)
	for _, line := range receipt.Details {
		fmt.Fprintf(&b, "%s: %s\n", line.Label, line.Value)
	}
	if receipt.Discount.IsPositive() {
		fmt.Fprintf(&b, "Discount: Rs. %s\n", receipt.Discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total paid: Rs. %s via %s\n", receipt.TotalAmount.StringFixed(2), strings.ToUpper(receipt.PaymentMethod))
	return b.String()
}

// --- HTML Template Definitions ---

const welcomeTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Welcome</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>Welcome to the cold storage marketplace, {{.Name}}!</h2>
	<p>Your account is ready. Browse warehouses near your farm and book storage in a few clicks:</p>
	<p><a href="{{.Link}}">Find storage</a></p>
	<p>If you did not sign up for this account, please ignore this email.</p>
</body>
</html>
`

const receiptTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Receipt {{.Reference}}</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>{{if eq .Kind "logistics"}}Logistics plan activated{{else}}Booking confirmed{{end}}</h2>
	<p>Reference: <strong>{{.Reference}}</strong><br>Issued: {{date .}}</p>
	<h3>Customer</h3>
	<p>{{.CustomerName}}<br>{{.CustomerEmail}}{{if .CustomerPhone}}<br>{{.CustomerPhone}}{{end}}</p>
	<h3>{{.Item}}</h3>
	<table cellpadding="4">
		{{range .Details}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
		{{end}}{{if .Discount.IsPositive}}<tr><td>Discount</td><td>- Rs. {{.Discount.StringFixed 2}}</td></tr>
		{{end}}<tr><td><strong>Total paid</strong></td><td><strong>Rs. {{.TotalAmount.StringFixed 2}}</strong></td></tr>
		<tr><td>Payment method</td><td>{{.PaymentMethod}}</td></tr>
	</table>
	<p>Thank you for choosing our cold storage network.</p>
</body>
</html>
`
