package part

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
	lperrors "github.com/livefir/livepart/internal/errors"
)

// ValuePart renders text, a node, a nested template or a list immediately
// before its marker comment.
type ValuePart struct {
	h      Helpers
	env    *Env
	anchor *html.Node
	last   any
	state  State

	// at most one of node, inst and list is set
	node *html.Node
	text bool
	inst TemplateInstance
	list *ListPart
}

// NewValuePart creates a part anchored at a marker comment.
func NewValuePart(anchor *html.Node, h Helpers) *ValuePart {
	return &ValuePart{h: h, env: h.Env(), anchor: anchor, last: unset}
}

func (p *ValuePart) Kind() descriptor.Kind { return descriptor.Value }
func (p *ValuePart) State() State           { return p.state }

// Value returns the last applied value.
func (p *ValuePart) Value() any {
	if p.last == unset {
		return nil
	}
	return p.last
}

// Anchor returns the marker comment the part renders before.
func (p *ValuePart) Anchor() *html.Node {
	return p.anchor
}

// Instance returns the nested template instance, if one is active.
func (p *ValuePart) Instance() TemplateInstance {
	return p.inst
}

// Apply commits v. An identical value is a no-op unless a nested template is
// active, since its inner values may have changed behind the same root.
func (p *ValuePart) Apply(v any) {
	p.env.trace(p, v, p.Value())
	if p.state == Removed {
		return
	}
	if p.inst == nil && Identical(v, p.last) {
		p.env.Metrics.IncrementPartSkipped()
		return
	}
	if !dom.Connected(p.anchor) {
		p.detached("apply")
		return
	}
	p.env.Metrics.IncrementPartApplied()

	switch {
	case IsNil(v):
		p.Clear()
		return
	case isList(v):
		p.applyList(v)
	default:
		if n, ok := v.(*html.Node); ok {
			if entry, ok := p.h.Lookup(n); ok {
				p.applyTemplate(n, entry.Values, entry.Compiled.ID)
			} else {
				p.applyNode(n)
			}
		} else {
			p.applyText(stringify(v))
		}
	}
	p.last = v
}

func (p *ValuePart) applyTemplate(root *html.Node, values []any, id string) {
	if p.inst != nil && p.inst.Compiled().ID == id {
		// the existing instance absorbs the values; a fresh clone is never inserted
		p.inst.Update(values)
		return
	}

	p.clearContent()
	inst, err := p.h.CreateTemplateInstance(root)
	if err != nil {
		p.env.Logger.Error("nested template instance failed", "component", "valuepart", "error", err)
		p.state = Empty
		return
	}
	inst.Update(values)
	p.env.Host.InsertBefore(root, p.anchor)
	p.inst = inst
	p.state = Populated
}

func (p *ValuePart) applyNode(n *html.Node) {
	if p.node == n && !p.text {
		return
	}
	p.clearContent()
	p.env.Host.InsertBefore(n, p.anchor)
	p.node = n
	p.state = Populated
}

func (p *ValuePart) applyText(s string) {
	if p.node != nil && p.text {
		p.env.Host.SetText(p.node, s)
		return
	}
	p.clearContent()
	t := p.env.Host.CreateText(s)
	p.env.Host.InsertBefore(t, p.anchor)
	p.node = t
	p.text = true
	p.state = Populated
}

func (p *ValuePart) applyList(v any) {
	if p.list == nil {
		p.clearContent()
		p.list = newListPart(p.anchor, p.h, true)
	}
	p.list.Apply(v)
	p.state = Populated
}

// Clear removes the rendered content and keeps the anchor.
func (p *ValuePart) Clear() {
	if p.state == Removed {
		return
	}
	p.clearContent()
	p.last = nil
	p.state = Empty
}

// Remove clears the part and deletes its anchor.
func (p *ValuePart) Remove() {
	if p.state == Removed {
		return
	}
	if !dom.Connected(p.anchor) {
		p.detached("remove")
	}
	p.clearContent()
	p.env.Host.Remove(p.anchor)
	p.last = nil
	p.state = Removed
}

func (p *ValuePart) clearContent() {
	if p.inst != nil {
		p.inst.Remove()
		p.inst = nil
	}
	if p.node != nil {
		p.env.Host.Remove(p.node)
		p.node = nil
		p.text = false
	}
	if p.list != nil {
		p.list.Clear()
		p.list = nil
	}
}

func (p *ValuePart) detached(op string) {
	p.env.Metrics.IncrementDetachedAnchor()
	p.env.Logger.Warn("value part anchor is detached",
		"component", "valuepart",
		"error", lperrors.DetachedAnchor(op))
}

func (p *ValuePart) firstNode() *html.Node {
	switch {
	case p.list != nil:
		return p.list.firstNode()
	case p.inst != nil:
		return p.inst.Root()
	case p.node != nil:
		return p.node
	default:
		return p.anchor
	}
}

func (p *ValuePart) anchorNode() *html.Node {
	return p.anchor
}
