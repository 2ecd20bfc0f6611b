// Package notifier fans typed events out to SSE listeners.
package notifier

import "sync"

// DefaultBuffer is the per-listener queue length.
const DefaultBuffer = 16

// Notifier broadcasts events to every subscribed listener.
// A slow listener loses its oldest queued event rather than blocking others.
type Notifier[T any] struct {
	mu        sync.RWMutex
	listeners map[chan T]struct{}
	buffer    int
	dropped   int
}

// New creates a Notifier with DefaultBuffer slots per listener.
func New[T any]() *Notifier[T] {
	return NewWithBuffer[T](DefaultBuffer)
}

// NewWithBuffer creates a Notifier with size slots per listener.
func NewWithBuffer[T any](size int) *Notifier[T] {
	if size < 1 {
		size = 1
	}
	return &Notifier[T]{
		listeners: make(map[chan T]struct{}),
		buffer:    size,
	}
}

// Subscribe returns a channel receiving every later broadcast.
// The caller must call Unsubscribe when done.
func (n *Notifier[T]) Subscribe() chan T {
	ch := make(chan T, n.buffer)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier[T]) Unsubscribe(ch chan T) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Len returns the number of listeners.
func (n *Notifier[T]) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Dropped returns how many queued events were discarded for slow listeners.
func (n *Notifier[T]) Dropped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

// Broadcast queues ev for every listener without blocking.
func (n *Notifier[T]) Broadcast(ev T) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
			continue
		default:
		}
		// Full: discard the oldest and retry once.
		select {
		case <-ch:
			n.dropped++
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
