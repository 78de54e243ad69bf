package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReminderSender is the application call the reminder worker drives
type ReminderSender interface {
	SendReminders(ctx context.Context, now time.Time) (int, error)
}

// ReminderWorker periodically asks the application to remind stale approvers
type ReminderWorker struct {
	interval time.Duration
	sender   ReminderSender
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	rounds  int
	sent    int
	lastErr error
}

// NewReminderWorker creates a worker that runs every interval
func NewReminderWorker(interval time.Duration, sender ReminderSender, logger *zap.Logger) *ReminderWorker {
	return &ReminderWorker{
		interval: interval,
		sender:   sender,
		now:      time.Now,
		logger:   logger,
	}
}

// Name returns the worker name for identification
func (w *ReminderWorker) Name() string {
	return "ReminderWorker"
}

// Start begins the polling loop
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return fmt.Errorf("reminder worker already running")
	}
	if w.interval <= 0 {
		return fmt.Errorf("reminder interval must be positive")
	}

	var loopCtx context.Context
	loopCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	w.logger.Info("ReminderWorker started", zap.Duration("interval", w.interval))
	go w.loop(loopCtx)
	return nil
}

// Stop cancels the loop and waits for an in-flight round to finish
func (w *ReminderWorker) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	rounds, sent, _ := w.Stats()
	w.logger.Info("ReminderWorker stopped", zap.Int("rounds", rounds), zap.Int("reminders_sent", sent))
	return nil
}

func (w *ReminderWorker) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ReminderWorker) runOnce(ctx context.Context) {
	sent, err := w.sender.SendReminders(ctx, w.now())

	w.mu.Lock()
	w.rounds++
	w.sent += sent
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Reminder round failed", zap.Error(err))
	}
}

// Stats returns rounds run, reminders sent and the last round's error
func (w *ReminderWorker) Stats() (rounds, sent int, lastErr error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rounds, w.sent, w.lastErr
}
