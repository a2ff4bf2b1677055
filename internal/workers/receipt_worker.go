// Package workers holds the background consumers of confirmation events.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cold-storage-marketplace/pkg/email"
	"cold-storage-marketplace/pkg/events"

	"go.uber.org/zap"
)

// Source is the queue the worker reads from.
type Source interface {
	Consume(ctx context.Context, queueName string, routingKeys []string, handler events.Handler) error
}

// ReceiptWorker mails the receipt of every confirmed booking and activated
// logistics subscription.
type ReceiptWorker struct {
	source    Source
	mailer    email.ServiceInterface
	templates *email.TemplateManager
	queueName string
	timeout   time.Duration
}

func NewReceiptWorker(source Source, mailer email.ServiceInterface, templates *email.TemplateManager, queueName string) *ReceiptWorker {
	return &ReceiptWorker{
		source:    source,
		mailer:    mailer,
		templates: templates,
		queueName: queueName,
		timeout:   30 * time.Second,
	}
}

// Start blocks until ctx is cancelled or the delivery channel closes.
func (w *ReceiptWorker) Start(ctx context.Context) error {
	zap.L().Info("starting receipt worker", zap.String("queue", w.queueName))
	return w.source.Consume(ctx, w.queueName, []string{events.BookingConfirmed, events.LogisticsActivated}, w.HandleMessage)
}

// HandleMessage sends one receipt. Malformed events are dead-lettered at once;
// mail failures are retried.
func (w *ReceiptWorker) HandleMessage(ctx context.Context, routingKey string, body []byte) error {
	var evt events.Confirmation
	if err := json.Unmarshal(body, &evt); err != nil {
		return &events.PermanentError{Err: fmt.Errorf("failed to unmarshal confirmation: %w", err)}
	}
	receipt := evt.Receipt
	if receipt.CustomerEmail == "" {
		return &events.PermanentError{Err: fmt.Errorf("confirmation %s has no customer email", receipt.Reference)}
	}

	html, err := w.templates.GenerateReceiptHTML(receipt)
	if err != nil {
		return &events.PermanentError{Err: fmt.Errorf("failed to render receipt %s: %w", receipt.Reference, err)}
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.mailer.SendEmail(ctx, receipt.CustomerEmail, email.ReceiptSubject(receipt), email.ReceiptPlainText(receipt), html); err != nil {
		return fmt.Errorf("failed to send receipt %s: %w", receipt.Reference, err)
	}

	zap.L().Info("receipt sent",
		zap.String("routing_key", routingKey),
		zap.String("reference", receipt.Reference),
		zap.String("user_id", evt.UserID),
	)
	return nil
}
