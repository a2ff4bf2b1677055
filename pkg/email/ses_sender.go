package email

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

const (
	DriverSES = "ses"
	DriverLog = "log"
)

type ServiceInterface interface {
	SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error
}

// Options selects and configures the outgoing mail transport.
type Options struct {
	Driver           string
	Region           string
	From             string
	FromName         string
	ConfigurationSet string
}

// NewSender builds the sender named by opts.Driver.
func NewSender(ctx context.Context, opts Options) (ServiceInterface, error) {
	switch opts.Driver {
	case DriverLog:
		return LogSender{}, nil
	case DriverSES, "":
		return NewSESV2Sender(ctx, opts)
	}
	return nil, fmt.Errorf("email.NewSender: unknown driver %q", opts.Driver)
}

// SESV2Sender delivers mail through Amazon SES v2.
type SESV2Sender struct {
	client           *sesv2.Client
	from             string
	configurationSet string
}

// NewSESV2Sender loads credentials from the default AWS chain (env, shared
// config, instance role).
func NewSESV2Sender(ctx context.Context, opts Options) (*SESV2Sender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("email.NewSESV2Sender: load aws config: %w", err)
	}

	return &SESV2Sender{
		client:           sesv2.NewFromConfig(cfg),
		from:             fromHeader(opts.From, opts.FromName),
		configurationSet: opts.ConfigurationSet,
	}, nil
}

// fromHeader renders `"Name" <addr>` when a display name is set.
func fromHeader(address, name string) string {
	if name == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

func (s *SESV2Sender) buildInput(to, subject, plainTextContent, htmlContent string) *sesv2.SendEmailInput {
	body := &types.Body{Text: utf8Content(plainTextContent)}
	if htmlContent != "" {
		body.Html = utf8Content(htmlContent)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(subject), Body: body},
		},
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}
	return input
}

func (s *SESV2Sender) SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error {
	out, err := s.client.SendEmail(ctx, s.buildInput(to, subject, plainTextContent, htmlContent))
	if err != nil {
		return fmt.Errorf("email.SendEmail to %s: %w", to, err)
	}

	zap.L().Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}

// LogSender writes messages to the logger instead of sending them. Used for
// local runs without AWS credentials.
type LogSender struct{}

func (LogSender) SendEmail(_ context.Context, to, subject, plainTextContent, _ string) error {
	zap.L().Info("email (log driver)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", plainTextContent),
	)
	return nil
}
