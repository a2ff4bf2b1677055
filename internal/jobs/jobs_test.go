package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"cold-storage-marketplace/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCompleter struct {
	asOf []time.Time
	err  error
}

func (r *recordingCompleter) CompleteEnded(_ context.Context, asOf time.Time) (int64, error) {
	r.asOf = append(r.asOf, asOf)
	return 2, r.err
}

func TestCompleteEndedBookingsUsesLocalDate(t *testing.T) {
	completer := &recordingCompleter{}
	s, err := NewScheduler(config.JobsConfig{BookingCompletionSpec: "@daily", Location: "Asia/Kolkata"}, completer)
	require.NoError(t, err)

	// 20:00 UTC is already the next day in India.
	s.now = func() time.Time { return time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC) }
	s.CompleteEndedBookings()

	require.Len(t, completer.asOf, 1)
	assert.Equal(t, "2026-03-10", completer.asOf[0].Format("2006-01-02"))
}

func TestCompleteEndedBookingsSurvivesErrors(t *testing.T) {
	completer := &recordingCompleter{err: errors.New("db down")}
	s, err := NewScheduler(config.JobsConfig{BookingCompletionSpec: "0 30 2 * * *", Location: "UTC"}, completer)
	require.NoError(t, err)

	assert.NotPanics(t, s.CompleteEndedBookings)
	assert.Len(t, completer.asOf, 1)
}

func TestNewSchedulerRejectsBadSettings(t *testing.T) {
	_, err := NewScheduler(config.JobsConfig{BookingCompletionSpec: "not a spec", Location: "UTC"}, &recordingCompleter{})
	assert.Error(t, err)

	_, err = NewScheduler(config.JobsConfig{BookingCompletionSpec: "@daily", Location: "Mars/Olympus"}, &recordingCompleter{})
	assert.Error(t, err)
}
