package refresh

import "time"

// State is the refresh state visible to the presentation layer.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateError    State = "error"
)

// Reason names what started a cycle.
type Reason string

const (
	ReasonStartup Reason = "startup"
	ReasonManual  Reason = "manual"
	ReasonTimer   Reason = "timer"
	ReasonVisible Reason = "visible"
	ReasonFocus   Reason = "focus"
)

// Event is one state transition.
type Event struct {
	State   State     `json:"state"`
	Message string    `json:"message,omitempty"`
	Reason  Reason    `json:"reason,omitempty"`
	RunID   string    `json:"run_id,omitempty"`
	At      time.Time `json:"at"`
}

const defaultSubscriberBuffer = 16

// Subscribe returns a channel receiving every subsequent state event and a
// function that unsubscribes and closes it. Events are dropped for a
// subscriber whose buffer is full.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// emitLocked records ev as the latest state and fans it out. c.mu must be held.
func (c *Controller) emitLocked(ev Event) {
	if ev.At.IsZero() {
		ev.At = c.now()
	}
	c.last = ev
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
