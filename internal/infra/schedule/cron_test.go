package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type jobRecorder struct {
	runs map[string][]error
}

func (r *jobRecorder) ObserveJob(job string, err error) {
	if r.runs == nil {
		r.runs = map[string][]error{}
	}
	r.runs[job] = append(r.runs[job], err)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEveryRejectsInvalidSpec(t *testing.T) {
	s := NewCron(quietLogger(), nil, 0)
	require.Error(t, s.Every("bad", "not a spec", func(context.Context) error { return nil }))
	require.Error(t, s.Every("nil", "@every 1m", nil))
}

func TestScheduledJobReportsOutcome(t *testing.T) {
	rec := &jobRecorder{}
	s := NewCron(quietLogger(), rec, 0)
	boom := errors.New("boom")
	calls := 0
	require.NoError(t, s.Every("sweep", "@every 1m", func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}))

	entries := s.c.Entries()
	require.Len(t, entries, 1)
	entries[0].WrappedJob.Run()
	entries[0].WrappedJob.Run()

	require.Equal(t, 2, calls)
	require.Equal(t, []error{nil, boom}, rec.runs["sweep"])
}

func TestStopCancelsJobContext(t *testing.T) {
	s := NewCron(quietLogger(), nil, 0)
	var seen error
	require.NoError(t, s.Every("sweep", "@every 1m", func(ctx context.Context) error {
		seen = ctx.Err()
		return nil
	}))
	s.Start()
	s.Stop()

	s.c.Entries()[0].WrappedJob.Run()
	require.ErrorIs(t, seen, context.Canceled)
}
