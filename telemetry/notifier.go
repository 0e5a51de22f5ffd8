package telemetry

import (
	"context"
	"sync"

	"github.com/hdt3213/minidis/lib/logger"
)

// Notifier is a fire-and-forget channel fed one message per parsed command.
// Notify never blocks, messages are dropped when the buffer is full or the notifier is closed.
type Notifier struct {
	mu      sync.RWMutex
	ch      chan string
	closed  bool
	metrics *Registry
}

// NewNotifier creates a notifier buffering up to size messages
func NewNotifier(size int, metrics *Registry) *Notifier {
	if size < 0 {
		size = 0
	}
	return &Notifier{
		ch:      make(chan string, size),
		metrics: metrics,
	}
}

// Notify queues msg for the consumer
func (n *Notifier) Notify(msg string) {
	if n == nil {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.dropped()
		return
	}
	select {
	case n.ch <- msg:
	default:
		n.dropped()
	}
}

func (n *Notifier) dropped() {
	if n.metrics != nil {
		n.metrics.NotificationsDropped.Inc()
	}
}

// C returns the channel the consumer reads from, it is closed by Close
func (n *Notifier) C() <-chan string {
	return n.ch
}

// Close stops accepting messages, it is safe to call more than once
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.ch)
}

// Run logs every message until ctx is done or the notifier is closed
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-n.ch:
			if !ok {
				return nil
			}
			logger.Info(msg)
		}
	}
}
