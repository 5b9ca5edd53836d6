package dom

import (
	"sync/atomic"
	"weak"

	"golang.org/x/net/html"
)

// Event is dispatched to listeners registered on a node or its ancestors.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Detail        any

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Listener handles an event.
type Listener func(*Event)

// Registration identifies one attached listener.
type Registration struct {
	id       uint64
	node     weak.Pointer[html.Node]
	typ      string
	listener Listener
}

// Type returns the event type the registration listens for.
func (r *Registration) Type() string {
	return r.typ
}

// AddEventListener attaches fn to n for events of type typ.
func (h *Host) AddEventListener(n *html.Node, typ string, fn Listener) *Registration {
	reg := &Registration{
		id:       atomic.AddUint64(&h.nextReg, 1),
		node:     weak.Make(n),
		typ:      typ,
		listener: fn,
	}
	regs, _ := h.listeners.Get(n)
	next := make([]*Registration, 0, len(regs)+1)
	next = append(next, regs...)
	next = append(next, reg)
	h.listeners.Set(n, next)
	return reg
}

// RemoveEventListener detaches a registration. Removing twice is a no-op.
func (h *Host) RemoveEventListener(reg *Registration) bool {
	if reg == nil {
		return false
	}
	node := reg.node.Value()
	if node == nil {
		return false
	}
	regs, ok := h.listeners.Get(node)
	if !ok {
		return false
	}
	next := make([]*Registration, 0, len(regs))
	found := false
	for _, r := range regs {
		if r.id == reg.id {
			found = true
			continue
		}
		next = append(next, r)
	}
	if !found {
		return false
	}
	if len(next) == 0 {
		h.listeners.Delete(node)
	} else {
		h.listeners.Set(node, next)
	}
	return true
}

// ListenerNodes returns the number of nodes holding at least one listener.
// Listeners are released only by RemoveEventListener; collection of the node
// alone does not free a listener that captures it.
func (h *Host) ListenerNodes() int {
	return h.listeners.Len()
}

// ListenerCount returns the number of listeners attached to n for typ.
func (h *Host) ListenerCount(n *html.Node, typ string) int {
	regs, _ := h.listeners.Get(n)
	count := 0
	for _, r := range regs {
		if r.typ == typ {
			count++
		}
	}
	return count
}

// Dispatch delivers an event to target and then bubbles it up through its
// ancestors. It returns the number of listeners invoked.
func (h *Host) Dispatch(target *html.Node, ev *Event) int {
	if ev.Target == nil {
		ev.Target = target
	}
	invoked := 0
	for n := target; n != nil; n = n.Parent {
		regs, _ := h.listeners.Get(n)
		ev.CurrentTarget = n
		for _, r := range regs {
			if r.typ != ev.Type {
				continue
			}
			r.listener(ev)
			invoked++
		}
		if ev.stopped {
			break
		}
	}
	return invoked
}
