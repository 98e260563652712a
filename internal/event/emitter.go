// Package event provides a small keyed listener registry shared by the
// playback session and the waveform engine.
package event

import (
	"slices"
	"sync"
)

type listener[E any] struct {
	id int
	fn func(E)
}

// Emitter dispatches events of kind K to registered listeners.
// Emit runs listeners synchronously on the caller's goroutine, in
// registration order. Listeners may unsubscribe (themselves or others)
// while an emit is in progress.
type Emitter[K comparable, E any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[K][]listener[E]
}

// On registers fn for kind and returns a function that removes it.
// The returned function is safe to call more than once.
func (e *Emitter[K, E]) On(kind K, fn func(E)) func() {
	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[K][]listener[E])
	}
	e.nextID++
	id := e.nextID
	e.listeners[kind] = append(e.listeners[kind], listener[E]{id: id, fn: fn})
	e.mu.Unlock()

	return func() { e.off(kind, id) }
}

func (e *Emitter[K, E]) off(kind K, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[kind] = slices.DeleteFunc(e.listeners[kind], func(l listener[E]) bool {
		return l.id == id
	})
}

// Emit delivers ev to every listener of kind registered at call time that
// is still registered when its turn comes.
func (e *Emitter[K, E]) Emit(kind K, ev E) {
	e.mu.Lock()
	snapshot := slices.Clone(e.listeners[kind])
	e.mu.Unlock()

	for _, l := range snapshot {
		if !e.registered(kind, l.id) {
			continue
		}
		l.fn(ev)
	}
}

func (e *Emitter[K, E]) registered(kind K, id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.ContainsFunc(e.listeners[kind], func(l listener[E]) bool {
		return l.id == id
	})
}

// Count returns the number of listeners for kind
func (e *Emitter[K, E]) Count(kind K) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[kind])
}

// Clear removes every listener
func (e *Emitter[K, E]) Clear() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}
