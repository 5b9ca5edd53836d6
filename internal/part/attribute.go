package part

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
)

// AttributePart binds one attribute of an element.
type AttributePart struct {
	env   *Env
	el    *html.Node
	name  string
	last  any
	state State
}

// NewAttributePart binds attribute name of el.
func NewAttributePart(el *html.Node, name string, env *Env) *AttributePart {
	return &AttributePart{env: env, el: el, name: name, last: unset}
}

func (p *AttributePart) Kind() descriptor.Kind { return descriptor.Attr }
func (p *AttributePart) State() State           { return p.state }

// Value returns the last applied value.
func (p *AttributePart) Value() any {
	if p.last == unset {
		return nil
	}
	return p.last
}

// Name returns the bound attribute name.
func (p *AttributePart) Name() string {
	return p.name
}

// Apply sets the attribute. Nil removes it, the empty string keeps it with an
// empty value. The key attribute is also cached as an element property.
func (p *AttributePart) Apply(v any) {
	p.env.trace(p, v, p.Value())
	if p.state == Removed {
		return
	}
	if Identical(v, p.last) {
		p.env.Metrics.IncrementPartSkipped()
		return
	}
	p.env.Metrics.IncrementPartApplied()
	p.last = v

	if IsNil(v) {
		p.Clear()
		return
	}

	p.env.Host.SetAttribute(p.el, p.name, stringify(v))
	if p.name == p.env.KeyAttribute {
		p.env.Host.SetProperty(p.el, dom.KeyProperty, v)
	}
	p.state = Populated
}

// Clear removes the attribute.
func (p *AttributePart) Clear() {
	if p.state == Removed {
		return
	}
	p.env.Host.RemoveAttribute(p.el, p.name)
	if p.name == p.env.KeyAttribute {
		p.env.Host.DeleteProperty(p.el, dom.KeyProperty)
	}
	p.last = nil
	p.state = Empty
}

// Remove clears the attribute. The element belongs to the template and stays.
func (p *AttributePart) Remove() {
	p.Clear()
	p.state = Removed
}
