package push

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrDispatcherClosed is returned by Close when called twice.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher sends messages on a fixed pool of workers so request handlers
// never wait on the push provider.
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of queueSize.
func NewDispatcher(sender Sender, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, queueSize),
		timeout: timeout,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Notify queues m without blocking. It reports false when the message was
// dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Notify(m Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("WARN: push dispatcher closed, dropping notification for order %s", m.OrderID)
		return false
	}
	select {
	case d.queue <- m:
		return true
	default:
		log.Printf("WARN: push queue full, dropping notification for order %s", m.OrderID)
		return false
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for m := range d.queue {
		d.send(m)
	}
}

func (d *Dispatcher) send(m Message) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.sender.Send(ctx, m); err != nil {
		log.Printf("ERROR: push notification for order %s: %v", m.OrderID, err)
	}
}

// Close stops accepting messages and waits for queued ones to be sent, or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NopSender logs messages instead of sending them. Used when no service
// account is configured.
type NopSender struct{}

func (NopSender) Send(_ context.Context, m Message) error {
	log.Printf("push disabled: order %s %q -> %q", m.OrderID, m.Title, m.Body)
	return nil
}
