package part

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
)

// EventPart binds one event listener of an element. At most one listener is
// attached at any time.
type EventPart struct {
	env   *Env
	el    *html.Node
	event string
	reg   *dom.Registration
	last  any
	state State
}

// NewEventPart binds listeners for event on el.
func NewEventPart(el *html.Node, event string, env *Env) *EventPart {
	return &EventPart{env: env, el: el, event: event}
}

func (p *EventPart) Kind() descriptor.Kind { return descriptor.Event }
func (p *EventPart) State() State           { return p.state }
func (p *EventPart) Value() any             { return p.last }

// Event returns the bound event name.
func (p *EventPart) Event() string {
	return p.event
}

// Apply detaches the current listener and attaches v. There is no equality
// check: listeners are closures whose identity changes every render.
func (p *EventPart) Apply(v any) {
	p.env.trace(p, v, p.last)
	if p.state == Removed {
		return
	}
	p.env.Metrics.IncrementPartApplied()
	p.detach()
	p.last = v

	fn := toListener(v)
	if fn == nil {
		if !IsNil(v) {
			p.env.Logger.Warn("unsupported event listener value",
				"component", "eventpart",
				"event", p.event,
				"type", fmt.Sprintf("%T", v))
		}
		p.state = Empty
		return
	}
	p.reg = p.env.Host.AddEventListener(p.el, p.event, fn)
	p.state = Populated
}

// Clear detaches the listener.
func (p *EventPart) Clear() {
	if p.state == Removed {
		return
	}
	p.detach()
	p.last = nil
	p.state = Empty
}

// Remove detaches the listener for good.
func (p *EventPart) Remove() {
	p.Clear()
	p.state = Removed
}

func (p *EventPart) detach() {
	if p.reg != nil {
		p.env.Host.RemoveEventListener(p.reg)
		p.reg = nil
	}
}

func toListener(v any) dom.Listener {
	switch fn := v.(type) {
	case dom.Listener:
		return fn
	case func(*dom.Event):
		return fn
	case func():
		if fn == nil {
			return nil
		}
		return func(*dom.Event) { fn() }
	}
	return nil
}
