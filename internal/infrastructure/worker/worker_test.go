package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSender struct {
	calls atomic.Int32
	err   error
}

func (s *countingSender) SendReminders(ctx context.Context, now time.Time) (int, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func TestReminderWorker_RunsEveryInterval(t *testing.T) {
	sender := &countingSender{}
	w := NewReminderWorker(10*time.Millisecond, sender, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "second start must fail")

	require.Eventually(t, func() bool { return sender.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	rounds, sent, lastErr := w.Stats()
	assert.GreaterOrEqual(t, rounds, 2)
	assert.Equal(t, rounds*2, sent)
	assert.NoError(t, lastErr)

	calls := sender.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, sender.calls.Load(), "no rounds after stop")
}

func TestReminderWorker_RecordsErrors(t *testing.T) {
	sender := &countingSender{err: errors.New("db down")}
	w := NewReminderWorker(5*time.Millisecond, sender, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool { return sender.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	_, _, lastErr := w.Stats()
	assert.EqualError(t, lastErr, "db down")
}

func TestReminderWorker_RejectsNonPositiveInterval(t *testing.T) {
	w := NewReminderWorker(0, &countingSender{}, zap.NewNop())
	assert.Error(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
}

type stubWorker struct {
	name     string
	startErr error
	started  bool
	stopped  bool
}

func (s *stubWorker) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *stubWorker) Stop() error {
	s.stopped = true
	return nil
}

func (s *stubWorker) Name() string { return s.name }

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())
	ok := &stubWorker{name: "ok"}
	broken := &stubWorker{name: "broken", startErr: errors.New("nope")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, ok.stopped)
	assert.NoError(t, m.StopAll(), "stopping twice is a no-op")
}
