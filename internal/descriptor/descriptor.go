// Package descriptor locates the dynamic slots of a cloned template root.
package descriptor

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/marker"
)

// Kind is the kind of a dynamic slot.
type Kind int

const (
	Value Kind = iota
	List
	Attr
	Event
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Value:
		return "value"
	case List:
		return "list"
	case Attr:
		return "attr"
	case Event:
		return "event"
	default:
		return "unknown"
	}
}

// Static reports whether the kind binds to an element attribute rather than a
// position in the child list.
func (k Kind) Static() bool {
	return k == Attr || k == Event
}

// Descriptor says where a part must be created. Anchor is the marker comment
// for Value and List slots and the owning element for Attr and Event slots.
// Name is the attribute name (Attr) or the event name (Event).
type Descriptor struct {
	Kind   Kind
	Anchor *html.Node
	Name   string
}

// Extract walks root depth-first and returns its slot descriptors in document
// order. Event attributes are stripped from their element; every other node is
// left untouched. Text nodes are never slots.
func Extract(root *html.Node, p *marker.Protocol) []Descriptor {
	var out []Descriptor
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			switch {
			case p.IsNode(n):
				out = append(out, Descriptor{Kind: Value, Anchor: n})
			case p.IsList(n):
				out = append(out, Descriptor{Kind: List, Anchor: n})
			}
			return
		case html.ElementNode:
			out = extractAttrs(n, p, out)
		case html.TextNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func extractAttrs(el *html.Node, p *marker.Protocol, out []Descriptor) []Descriptor {
	kept := el.Attr[:0]
	for _, a := range el.Attr {
		if !p.IsPlaceholder(a.Val) {
			kept = append(kept, a)
			continue
		}
		if name, ok := p.EventName(a.Key); ok {
			out = append(out, Descriptor{Kind: Event, Anchor: el, Name: name})
			continue
		}
		out = append(out, Descriptor{Kind: Attr, Anchor: el, Name: a.Key})
		kept = append(kept, a)
	}
	el.Attr = kept
	return out
}

// Partition returns descriptor indices ordered attr/event first, then
// value/list, preserving relative order inside each group.
func Partition(ds []Descriptor) []int {
	order := make([]int, 0, len(ds))
	for i, d := range ds {
		if d.Kind.Static() {
			order = append(order, i)
		}
	}
	for i, d := range ds {
		if !d.Kind.Static() {
			order = append(order, i)
		}
	}
	return order
}
