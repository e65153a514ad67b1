package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Dispatcher queues notices and delivers them on background workers. A full
// queue drops the notice rather than stall the caller.
type Dispatcher struct {
	next    Notifier
	queue   chan Notice
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(next Notifier, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		next:    next,
		queue:   make(chan Notice, queueSize),
		timeout: 30 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Notify enqueues n. It never blocks and only fails after Close.
func (d *Dispatcher) Notify(_ context.Context, n Notice) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errDispatcherClosed
	}
	select {
	case d.queue <- n:
	default:
		log.Printf("⚠️  Notification queue full, dropping %s for user %s", n.Type, n.UserID)
	}
	return nil
}

// Close stops accepting notices and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.next.Notify(ctx, n); err != nil {
			log.Printf("⚠️  Failed to deliver %s to user %s: %v", n.Type, n.UserID, err)
		}
		cancel()
	}
}

var errDispatcherClosed = errors.New("notification dispatcher is closed")
