package notification

import (
	"context"
	"sync"
	"time"

	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/pkg/logger"
)

const sendTimeout = 30 * time.Second

// Dispatcher delivers events on its own workers. Delivery is best-effort:
// failures are logged and counted, never returned to the emitter.
type Dispatcher struct {
	mailer  Mailer
	metrics *metrics.Metrics
	queue   chan Event
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(mailer Mailer, workers, queueLen int, m *metrics.Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueLen < 1 {
		queueLen = 1
	}
	return &Dispatcher{
		mailer:  mailer,
		metrics: m,
		queue:   make(chan Event, queueLen),
		workers: workers,
	}
}

func (d *Dispatcher) Start() {
	logger.Info("Starting notification dispatcher", map[string]interface{}{
		"workers": d.workers,
	})
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Notify enqueues event, dropping it when the queue is full or stopped.
func (d *Dispatcher) Notify(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logger.Warn("Notification dropped: dispatcher stopped", map[string]interface{}{
			"kind": event.Kind,
		})
		d.metrics.NotificationDropped(string(event.Kind))
		return
	}

	select {
	case d.queue <- event:
	default:
		logger.Warn("Notification dropped: queue full", map[string]interface{}{
			"kind": event.Kind,
		})
		d.metrics.NotificationDropped(string(event.Kind))
	}
}

// Stop drains the queue and waits for workers until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Notification worker recovered from panic", map[string]interface{}{
				"kind":  event.Kind,
				"panic": r,
			})
		}
	}()

	msg, err := Render(event)
	if err != nil {
		logger.Error("Failed to render notification", err, map[string]interface{}{
			"kind": event.Kind,
		})
		d.metrics.NotificationDone(string(event.Kind), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	err = d.mailer.Send(ctx, msg)
	d.metrics.NotificationDone(string(event.Kind), err)
	if err != nil {
		logger.Warn("Email send failed", map[string]interface{}{
			"kind":  event.Kind,
			"to":    msg.To,
			"error": err.Error(),
		})
	}
}
