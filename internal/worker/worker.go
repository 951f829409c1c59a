// Package worker contains the background notification poller. It refreshes the
// signed-in user's notifications on a fixed interval, one tick at a time, and
// can be triggered manually.
package worker

import (
	"context"
	"sync"
	"time"

	"ideaboard/internal/config"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// maxHistory bounds the run history kept in memory
const maxHistory = 20

// Status represents the current state of the poller
type Status struct {
	IsRunning     bool      `json:"is_running"`
	LastRunStart  time.Time `json:"last_run_start"`
	LastRunFinish time.Time `json:"last_run_finish"`
	LastRunError  string    `json:"last_run_error,omitempty"`
	NextRun       time.Time `json:"next_run"`
	Polls         int       `json:"polls"`
}

// RunRecord tracks individual poll runs
type RunRecord struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // Success, Failure
	Count     int           `json:"count"`
	Unread    int           `json:"unread"`
}

// FetchFunc loads the current notification list
type FetchFunc func(ctx context.Context) ([]models.Notification, error)

// UpdateFunc receives every successfully fetched list. It runs on the poller goroutine.
type UpdateFunc func(ctx context.Context, notifications []models.Notification)

// NotificationPoller periodically fetches notifications
type NotificationPoller struct {
	fetch    FetchFunc
	update   UpdateFunc
	interval time.Duration
	logger   *observability.Logger

	mu            sync.RWMutex
	status        Status
	history       []RunRecord
	manualTrigger chan bool
	cancel        context.CancelFunc
	done          chan struct{}

	// Time function for testing - defaults to time.Now
	timeNow func() time.Time
}

// NewNotificationPoller creates a stopped poller. A non-positive interval uses NotificationPollInterval.
func NewNotificationPoller(fetch FetchFunc, update UpdateFunc, interval time.Duration, logger *observability.Logger) *NotificationPoller {
	if interval <= 0 {
		interval = config.NotificationPollInterval
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &NotificationPoller{
		fetch:         fetch,
		update:        update,
		interval:      interval,
		logger:        logger,
		manualTrigger: make(chan bool, 1),
		timeNow:       time.Now,
	}
}

// Start begins polling: one fetch immediately, then one per interval. Starting a running
// poller cancels the previous loop in the same critical section that installs the new one,
// so concurrent calls leave exactly one loop alive.
func (p *NotificationPoller) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.done = done
	p.status.IsRunning = true
	p.status.NextRun = p.timeNow()
	go p.loop(loopCtx, done)
	p.mu.Unlock()

	p.logger.Info(ctx, "Notification poller started", map[string]interface{}{
		"interval": p.interval.String(),
	})
}

func (p *NotificationPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.run(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug(context.Background(), "Notification poller shutting down")
			return

		case <-ticker.C:
			p.run(ctx)

		case <-p.manualTrigger:
			p.logger.Debug(ctx, "Notification poller triggered manually")
			p.run(ctx)
		}
	}
}

// run executes a single poll
func (p *NotificationPoller) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := observability.TraceWorkerFunction(ctx, "poll_notifications")
	var err error
	defer observability.FinishSpan(span, &err)

	start := p.timeNow()
	p.mu.Lock()
	p.status.LastRunStart = start
	p.mu.Unlock()

	notifications, err := p.fetch(ctx)
	finish := p.timeNow()

	record := RunRecord{StartTime: start, EndTime: finish, Duration: finish.Sub(start)}
	if err != nil {
		record.Status = "Failure"
		observability.RecordNotificationPoll(ctx, "failure")
		p.logger.Warn(ctx, "Notification poll failed", map[string]interface{}{
			"error": err.Error(),
			"code":  string(contextutils.GetErrorCode(err)),
		})
	} else {
		record.Status = "Success"
		record.Count = len(notifications)
		record.Unread = len(models.UnreadIDs(notifications))
		span.SetAttributes(
			attribute.Int("notifications.count", record.Count),
			attribute.Int("notifications.unread", record.Unread),
		)
		observability.RecordNotificationPoll(ctx, "success")
		// A stop that raced the fetch wins; the result belongs to a finished session
		if ctx.Err() == nil && p.update != nil {
			p.update(ctx, notifications)
		}
	}

	p.mu.Lock()
	p.status.LastRunFinish = finish
	p.status.NextRun = finish.Add(p.interval)
	p.status.Polls++
	if err != nil {
		p.status.LastRunError = err.Error()
	} else {
		p.status.LastRunError = ""
	}
	p.history = append(p.history, record)
	if len(p.history) > maxHistory {
		p.history = p.history[len(p.history)-maxHistory:]
	}
	p.mu.Unlock()
}

// TriggerNow requests an immediate poll. It never blocks; a trigger that is already
// pending absorbs this one.
func (p *NotificationPoller) TriggerNow() {
	select {
	case p.manualTrigger <- true:
	default:
		p.logger.Debug(context.Background(), "Manual trigger already pending for notification poller")
	}
}

// Stop cancels the polling loop without waiting for an in-flight poll. It is safe to
// call from inside the update callback and on a stopped poller.
func (p *NotificationPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.status.IsRunning = false
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Shutdown stops the loop and waits for it to exit or for ctx to end
func (p *NotificationPoller) Shutdown(ctx context.Context) error {
	p.mu.RLock()
	done := p.done
	p.mu.RUnlock()

	p.Stop()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return contextutils.WrapError(ctx.Err(), "notification poller did not stop in time")
	}
}

// IsRunning reports whether the loop is active
func (p *NotificationPoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status.IsRunning
}

// GetStatus returns the current poller status
func (p *NotificationPoller) GetStatus() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// GetHistory returns the recent poll history
func (p *NotificationPoller) GetHistory() []RunRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	// Return a copy to avoid race conditions
	history := make([]RunRecord, len(p.history))
	copy(history, p.history)
	return history
}
