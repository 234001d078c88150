package connection

import "sync"

// Event is a lifecycle transition of a Connection.
type Event int

const (
	// EventConnect fires once per successful transition into StateConnected.
	EventConnect Event = iota + 1
	// EventDisconnect fires once per transition out of StateConnected.
	EventDisconnect
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Listener is called with the connection that changed state.
type Listener func(c *Connection)

type subscription struct {
	id   uint64
	fn   Listener
	once bool
}

// events manages listeners per event. Listeners run in registration order.
type events struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[Event][]subscription
}

func (ev *events) subscribe(e Event, fn Listener, once bool) func() {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if ev.listeners == nil {
		ev.listeners = make(map[Event][]subscription)
	}
	ev.nextID++
	id := ev.nextID
	ev.listeners[e] = append(ev.listeners[e], subscription{id: id, fn: fn, once: once})

	return func() { ev.unsubscribe(e, id) }
}

func (ev *events) unsubscribe(e Event, id uint64) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	subs := ev.listeners[e]
	for i, s := range subs {
		if s.id == id {
			ev.listeners[e] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// emit calls the listeners of e on the calling goroutine. The listener set
// is copied first so listeners may subscribe or unsubscribe.
func (ev *events) emit(e Event, c *Connection) {
	ev.mu.Lock()
	subs := ev.listeners[e]
	if len(subs) == 0 {
		ev.mu.Unlock()
		return
	}
	fire := make([]Listener, 0, len(subs))
	kept := subs[:0:0]
	for _, s := range subs {
		fire = append(fire, s.fn)
		if !s.once {
			kept = append(kept, s)
		}
	}
	ev.listeners[e] = kept
	ev.mu.Unlock()

	for _, fn := range fire {
		fn(c)
	}
}

func (ev *events) count(e Event) int {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return len(ev.listeners[e])
}
