package core

import "sync"

// ListenerID is the handle returned by a subscription. It is never reused
// within one registry.
type ListenerID uint64

type listener[T any] struct {
	id ListenerID
	fn func(T)
}

// Listeners is an ordered registry of callbacks. Callbacks run synchronously
// on the emitting goroutine, in subscription order, and never concurrently
// with the registry lock held, so a callback may subscribe or unsubscribe.
type Listeners[T any] struct {
	mu      sync.Mutex
	next    ListenerID
	entries []listener[T]
}

// NewListeners creates an empty registry.
func NewListeners[T any]() *Listeners[T] {
	return &Listeners[T]{}
}

// Add subscribes fn and returns its handle.
func (l *Listeners[T]) Add(fn func(T)) ListenerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.entries = append(l.entries, listener[T]{id: l.next, fn: fn})
	return l.next
}

// Once subscribes fn for a single emission; it is removed before it runs.
func (l *Listeners[T]) Once(fn func(T)) ListenerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.entries = append(l.entries, listener[T]{id: id, fn: func(v T) {
		if l.Remove(id) {
			fn(v)
		}
	}})
	return id
}

// Remove unsubscribes the listener with the given handle. It reports whether
// the handle was registered.
func (l *Listeners[T]) Remove(id ListenerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (l *Listeners[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Emit calls every listener with v. Listeners removed by an earlier callback
// of the same emission are skipped.
func (l *Listeners[T]) Emit(v T) {
	l.mu.Lock()
	snapshot := make([]listener[T], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		if !l.registered(e.id) {
			continue
		}
		e.fn(v)
	}
}

func (l *Listeners[T]) registered(id ListenerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.id == id {
			return true
		}
	}
	return false
}
