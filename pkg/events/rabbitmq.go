package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const exchangeKind = "topic"

const (
	retryCountHeader = "x-retry-count"
	routingKeyHeader = "x-routing-key"

	DefaultMaxRetries = 5
	DefaultRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// RabbitPublisher publishes JSON events as persistent messages on a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	channel  *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events.Publish: encode: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("events.Publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Consumer reads one durable queue bound to the exchange with manual acks.
// Failed messages are republished with a growing delay and moved to
// "<queue>.dead" once MaxRetries is spent.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string

	MaxRetries int
	RetryDelay time.Duration
}

func NewConsumer(url, exchange string, prefetch int) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Qos(prefetch, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Consumer{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Handler processes one message body. A returned error schedules a retry
// unless it is permanent.
type Handler func(ctx context.Context, routingKey string, body []byte) error

// PermanentError marks a message that will never succeed. It goes straight to
// the dead-letter queue.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Consume declares queueName, binds it to each routing key and handles deliveries
// until ctx is cancelled or the channel closes.
func (c *Consumer) Consume(ctx context.Context, queueName string, routingKeys []string, handler Handler) error {
	deadQueue := queueName + ".dead"
	if _, err := c.channel.QueueDeclare(deadQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}

	_, err := c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": deadQueue,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := c.channel.QueueBind(queueName, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", queueName, key, err)
		}
	}

	msgs, err := c.channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	zap.L().Info("started consuming", zap.String("queue", queueName), zap.Strings("routing_keys", routingKeys))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queueName)
			}
			c.dispatch(ctx, queueName, msg, handler)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, queueName string, msg amqp.Delivery, handler Handler) {
	routingKey := routingKeyOf(msg)
	err := handler(ctx, routingKey, msg.Body)
	if err == nil {
		_ = msg.Ack(false)
		return
	}

	var permanent *PermanentError
	if errors.As(err, &permanent) {
		zap.L().Error("dropping message", zap.String("routing_key", routingKey), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	attempt, delay, giveUp := nextRetry(msg.Headers, c.MaxRetries, c.RetryDelay)
	if giveUp {
		zap.L().Error("retries exhausted, dead-lettering message",
			zap.String("routing_key", routingKey),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		_ = msg.Nack(false, false)
		return
	}

	zap.L().Warn("error processing message, retrying",
		zap.String("routing_key", routingKey),
		zap.Int("attempt", attempt+1),
		zap.Duration("delay", delay),
		zap.Error(err),
	)

	select {
	case <-ctx.Done():
		_ = msg.Nack(false, true)
		return
	case <-time.After(delay):
	}

	if err := c.republish(ctx, queueName, routingKey, msg, attempt+1); err != nil {
		zap.L().Error("failed to schedule retry", zap.String("routing_key", routingKey), zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// republish puts msg back on queueName through the default exchange so only
// this consumer's queue sees the retry.
func (c *Consumer) republish(ctx context.Context, queueName, routingKey string, msg amqp.Delivery, attempt int) error {
	return c.channel.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.Timestamp,
		MessageId:    msg.MessageId,
		Headers:      retryHeaders(msg.Headers, routingKey, attempt),
		Body:         msg.Body,
	})
}

// nextRetry reports how many retries msg already had, how long to wait
// before the next one and whether the budget is spent.
func nextRetry(headers amqp.Table, maxRetries int, base time.Duration) (attempt int, delay time.Duration, giveUp bool) {
	attempt = retryCount(headers)
	if attempt >= maxRetries {
		return attempt, 0, true
	}

	delay = base
	for i := 0; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return attempt, delay, false
}

func retryCount(headers amqp.Table) int {
	switch v := headers[retryCountHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

func retryHeaders(headers amqp.Table, routingKey string, attempt int) amqp.Table {
	out := amqp.Table{}
	for k, v := range headers {
		out[k] = v
	}
	out[retryCountHeader] = int32(attempt)
	out[routingKeyHeader] = routingKey
	return out
}

// routingKeyOf returns the key the message was first published with. Retries
// travel through the default exchange, which rewrites RoutingKey to the queue name.
func routingKeyOf(msg amqp.Delivery) string {
	if key, ok := msg.Headers[routingKeyHeader].(string); ok && key != "" {
		return key
	}
	return msg.RoutingKey
}
