package transport

import (
	"sync"
)

// Handler consumes one inbound frame.
type Handler func(Frame)

type listener struct {
	id      int
	scope   string
	handler Handler
}

// Dispatcher is the channel's inbound listener registry: a map from scope
// key to an ordered list of handlers. Subscribing never evicts another
// consumer; a scope's listeners can be dropped together when its session
// closes.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []listener
	nextID    int
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a handler under the given scope and returns the
// function that removes exactly this registration.
func (d *Dispatcher) Subscribe(scope string, h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, listener{id: id, scope: scope, handler: h})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, l := range d.listeners {
			if l.id == id {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

// DropScope removes every listener registered under scope.
func (d *Dispatcher) DropScope(scope string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.listeners[:0]
	for _, l := range d.listeners {
		if l.scope != scope {
			kept = append(kept, l)
		}
	}
	d.listeners = kept
}

// Dispatch delivers the frame to every listener in registration order.
// Called from the channel's single reader goroutine, so per-channel
// delivery order equals connection arrival order.
func (d *Dispatcher) Dispatch(f Frame) {
	d.mu.RLock()
	active := make([]listener, len(d.listeners))
	copy(active, d.listeners)
	d.mu.RUnlock()

	for _, l := range active {
		l.handler(f)
	}
}
