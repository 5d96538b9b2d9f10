package changefeed

import (
	"context"
	"sync"
)

// LocalNotifier connects bridges living in the same process. It backs
// single-node deployments and multi-instance tests.
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[int]func(Signal)
	next      int
	closed    chan struct{}
	closeOnce sync.Once
}

// NewLocalNotifier builds a notifier with no listeners.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{
		listeners: make(map[int]func(Signal)),
		closed:    make(chan struct{}),
	}
}

func (n *LocalNotifier) Notify(_ context.Context, sig Signal) error {
	n.mu.Lock()
	fns := make([]func(Signal), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(sig)
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context, fn func(Signal)) error {
	n.mu.Lock()
	id := n.next
	n.next++
	n.listeners[id] = fn
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
	case <-n.closed:
	}
	return nil
}

// Listeners returns the number of active Listen calls.
func (n *LocalNotifier) Listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

func (n *LocalNotifier) Close() error {
	n.closeOnce.Do(func() { close(n.closed) })
	return nil
}
