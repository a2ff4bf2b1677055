package events

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestNextRetryBacksOffAndGivesUp(t *testing.T) {
	attempt, delay, giveUp := nextRetry(nil, 5, 500*time.Millisecond)
	assert.Equal(t, 0, attempt)
	assert.Equal(t, 500*time.Millisecond, delay)
	assert.False(t, giveUp)

	attempt, delay, giveUp = nextRetry(amqp.Table{retryCountHeader: int32(3)}, 5, 500*time.Millisecond)
	assert.Equal(t, 3, attempt)
	assert.Equal(t, 4*time.Second, delay)
	assert.False(t, giveUp)

	_, delay, _ = nextRetry(amqp.Table{retryCountHeader: int64(9)}, 20, 10*time.Second)
	assert.Equal(t, maxRetryDelay, delay)

	attempt, _, giveUp = nextRetry(amqp.Table{retryCountHeader: int32(5)}, 5, 500*time.Millisecond)
	assert.Equal(t, 5, attempt)
	assert.True(t, giveUp)
}

func TestRetryHeadersKeepOriginalRoutingKey(t *testing.T) {
	in := amqp.Table{"trace": "abc"}
	out := retryHeaders(in, "booking.confirmed", 2)

	assert.Equal(t, int32(2), out[retryCountHeader])
	assert.Equal(t, "abc", out["trace"])
	assert.NotContains(t, in, retryCountHeader)

	retried := amqp.Delivery{RoutingKey: "worker.notifications", Headers: out}
	assert.Equal(t, "booking.confirmed", routingKeyOf(retried))
	assert.Equal(t, 2, retryCount(retried.Headers))

	first := amqp.Delivery{RoutingKey: "booking.confirmed"}
	assert.Equal(t, "booking.confirmed", routingKeyOf(first))
}
