package part

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
	lperrors "github.com/livefir/livepart/internal/errors"
)

// listEntry is the reconciliation state of one rendered item.
type listEntry struct {
	key   any
	part  region
	value any
}

// ListPart renders a keyed collection before its marker comment. Every item
// gets its own anchor comment and value part; items are matched across
// updates by key.
type ListPart struct {
	h      Helpers
	env    *Env
	anchor *html.Node
	// shared anchors belong to an enclosing ValuePart and survive Remove
	shared bool

	entries []*listEntry // document order
	byKey   map[any]*listEntry
	last    any
	state   State
}

// NewListPart creates a list part anchored at a list marker comment.
func NewListPart(anchor *html.Node, h Helpers) *ListPart {
	return newListPart(anchor, h, false)
}

func newListPart(anchor *html.Node, h Helpers, shared bool) *ListPart {
	return &ListPart{
		h:      h,
		env:    h.Env(),
		anchor: anchor,
		shared: shared,
		byKey:  make(map[any]*listEntry),
		last:   unset,
	}
}

func (p *ListPart) Kind() descriptor.Kind { return descriptor.List }
func (p *ListPart) State() State           { return p.state }

// Value returns the last applied value.
func (p *ListPart) Value() any {
	if p.last == unset {
		return nil
	}
	return p.last
}

// Len returns the number of rendered items.
func (p *ListPart) Len() int {
	return len(p.entries)
}

// Keys returns the item keys in document order.
func (p *ListPart) Keys() []any {
	keys := make([]any, len(p.entries))
	for i, e := range p.entries {
		keys[i] = e.key
	}
	return keys
}

// Item returns the part rendering the item with key k.
func (p *ListPart) Item(k any) (Part, bool) {
	e, ok := p.byKey[normalizeKey(k)]
	if !ok {
		return nil, false
	}
	return e.part, true
}

// Apply reconciles the rendered items with v. A value that is not a slice or
// array clears the list.
func (p *ListPart) Apply(v any) {
	p.env.trace(p, v, p.Value())
	if p.state == Removed {
		return
	}
	if Identical(v, p.last) {
		p.env.Metrics.IncrementPartSkipped()
		return
	}
	if !dom.Connected(p.anchor) {
		p.env.Metrics.IncrementDetachedAnchor()
		p.env.Logger.Warn("list part anchor is detached",
			"component", "listpart",
			"error", lperrors.DetachedAnchor("apply"))
		return
	}
	p.env.Metrics.IncrementPartApplied()

	items, ok := asItems(v)
	if !ok {
		p.Clear()
		return
	}
	p.reconcile(items)
	p.last = v
	p.state = Populated
}

func (p *ListPart) reconcile(items []any) {
	keys := make([]any, len(items))
	values := make([]any, len(items))
	for i, item := range items {
		keys[i], values[i] = p.keyOf(item, i)
	}

	// match new keys against the previous entries
	matched := make([]*listEntry, len(items))
	used := make(map[*listEntry]bool, len(p.entries))
	firstIndex := make(map[any]int, len(items))
	for i, k := range keys {
		if j, dup := firstIndex[k]; dup {
			p.env.Metrics.IncrementKeyCollision()
			p.env.Logger.Warn("duplicate list key",
				"component", "listpart",
				"error", lperrors.KeyCollision("reconcile", k, j, i))
		} else {
			firstIndex[k] = i
		}
		if e, ok := p.byKey[k]; ok && !used[e] {
			matched[i] = e
			used[e] = true
		}
	}

	// drop every previous entry no key claimed
	var removed int
	remaining := make([]*listEntry, 0, len(p.entries))
	for _, e := range p.entries {
		if used[e] {
			remaining = append(remaining, e)
			continue
		}
		e.part.Remove()
		removed++
	}

	// walk the new order, inserting and moving so the document matches it
	next := p.anchor
	if len(remaining) > 0 {
		next = remaining[0].part.firstNode()
	}

	var created, reused, moved int
	entries := make([]*listEntry, 0, len(items))
	byKey := make(map[any]*listEntry, len(items))
	for i := range items {
		e := matched[i]
		if e == nil {
			e = p.create(keys[i], next)
			e.part.Apply(values[i])
			e.value = values[i]
			created++
		} else {
			reused++
			if e.part.firstNode() == next {
				next = e.part.anchorNode().NextSibling
			} else {
				p.move(e, next)
				moved++
			}
			if !Identical(values[i], e.value) {
				e.part.Apply(values[i])
				e.value = values[i]
			}
		}
		entries = append(entries, e)
		// a duplicate key takes the slot; the earlier entry is reclaimed next pass
		byKey[keys[i]] = e
	}

	p.entries = entries
	p.byKey = byKey
	p.env.Metrics.RecordListPass(created, reused, moved, removed)
}

// create inserts a fresh item anchor before ref and builds its part.
func (p *ListPart) create(key any, ref *html.Node) *listEntry {
	comment := p.env.Host.CreateComment("")
	p.env.Host.InsertBefore(comment, ref)

	created := p.h.CreatePart(descriptor.Descriptor{Kind: descriptor.Value, Anchor: comment})
	r, ok := created.(region)
	if !ok {
		r = NewValuePart(comment, p.h)
	}
	return &listEntry{key: key, part: r, value: unset}
}

// move relocates the siblings of an entry, anchor included, before ref.
func (p *ListPart) move(e *listEntry, ref *html.Node) {
	end := e.part.anchorNode()
	var nodes []*html.Node
	for n := e.part.firstNode(); n != nil; n = n.NextSibling {
		nodes = append(nodes, n)
		if n == end {
			break
		}
	}
	for _, n := range nodes {
		p.env.Host.InsertBefore(n, ref)
	}
}

// Clear removes every item and keeps the list anchor.
func (p *ListPart) Clear() {
	if p.state == Removed {
		return
	}
	for _, e := range p.entries {
		e.part.Remove()
	}
	if len(p.entries) > 0 {
		p.env.Metrics.RecordListPass(0, 0, 0, len(p.entries))
	}
	p.entries = nil
	p.byKey = make(map[any]*listEntry)
	p.last = nil
	p.state = Empty
}

// Remove clears the list and deletes its anchor unless an enclosing value
// part owns it.
func (p *ListPart) Remove() {
	if p.state == Removed {
		return
	}
	p.Clear()
	if !p.shared {
		p.env.Host.Remove(p.anchor)
	}
	p.state = Removed
}

func (p *ListPart) firstNode() *html.Node {
	if len(p.entries) > 0 {
		return p.entries[0].part.firstNode()
	}
	return p.anchor
}

func (p *ListPart) anchorNode() *html.Node {
	return p.anchor
}
