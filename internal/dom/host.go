// Package dom turns the golang.org/x/net/html node tree into a live element
// tree: every structural change goes through a Host, which also keeps the
// side tables a browser element would carry itself (event listeners and
// non-attribute properties) and reports mutations to observers.
package dom

import (
	"bytes"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// KeyProperty is the element property holding a rendered reconciliation key.
const KeyProperty = "livepart.key"

// MutationType classifies a mutation record.
type MutationType int

const (
	ChildList MutationType = iota
	Attributes
	CharacterData
)

// String returns the mutation type name.
func (t MutationType) String() string {
	switch t {
	case ChildList:
		return "childList"
	case Attributes:
		return "attributes"
	case CharacterData:
		return "characterData"
	default:
		return "unknown"
	}
}

// MutationRecord describes one change applied through the host.
type MutationRecord struct {
	Type      MutationType
	Target    *html.Node
	Added     *html.Node
	Removed   *html.Node
	Attribute string
	OldValue  string
}

// Observer receives mutation records synchronously.
type Observer func(MutationRecord)

// Host owns the side tables of one element tree.
type Host struct {
	props     *WeakMap[map[string]any]
	listeners *WeakMap[[]*Registration]

	mu        sync.RWMutex
	observers map[int]Observer
	nextObs   int
	nextReg   uint64
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{
		props:     NewWeakMap[map[string]any](),
		listeners: NewWeakMap[[]*Registration](),
		observers: make(map[int]Observer),
	}
}

// Observe registers an observer and returns a function that unregisters it.
func (h *Host) Observe(fn Observer) func() {
	h.mu.Lock()
	id := h.nextObs
	h.nextObs++
	h.observers[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.observers, id)
		h.mu.Unlock()
	}
}

func (h *Host) record(r MutationRecord) {
	h.mu.RLock()
	if len(h.observers) == 0 {
		h.mu.RUnlock()
		return
	}
	obs := make([]Observer, 0, len(h.observers))
	for _, fn := range h.observers {
		obs = append(obs, fn)
	}
	h.mu.RUnlock()

	for _, fn := range obs {
		fn(r)
	}
}

// SetProperty stores a non-attribute property on a node.
func (h *Host) SetProperty(n *html.Node, name string, v any) {
	props, ok := h.props.Get(n)
	if !ok {
		props = make(map[string]any)
	} else {
		// copy on write, readers may hold the previous map
		next := make(map[string]any, len(props)+1)
		for k, val := range props {
			next[k] = val
		}
		props = next
	}
	props[name] = v
	h.props.Set(n, props)
}

// Property reads a property stored with SetProperty.
func (h *Host) Property(n *html.Node, name string) (any, bool) {
	props, ok := h.props.Get(n)
	if !ok {
		return nil, false
	}
	v, ok := props[name]
	return v, ok
}

// DeleteProperty removes a property.
func (h *Host) DeleteProperty(n *html.Node, name string) {
	props, ok := h.props.Get(n)
	if !ok {
		return
	}
	if _, ok := props[name]; !ok {
		return
	}
	next := make(map[string]any, len(props))
	for k, v := range props {
		if k != name {
			next[k] = v
		}
	}
	h.props.Set(n, next)
}

// CreateText creates a detached text node.
func (h *Host) CreateText(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// CreateComment creates a detached comment node.
func (h *Host) CreateComment(data string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: data}
}

// InsertBefore inserts n immediately before ref. A node that already has a
// parent is moved.
func (h *Host) InsertBefore(n, ref *html.Node) bool {
	if ref == nil || ref.Parent == nil || n == nil || n == ref {
		return false
	}
	if n.Parent != nil {
		h.Remove(n)
	}
	parent := ref.Parent
	parent.InsertBefore(n, ref)
	h.record(MutationRecord{Type: ChildList, Target: parent, Added: n})
	return true
}

// AppendChild appends n to parent, moving it if it already has a parent.
func (h *Host) AppendChild(parent, n *html.Node) {
	if n.Parent != nil {
		h.Remove(n)
	}
	parent.AppendChild(n)
	h.record(MutationRecord{Type: ChildList, Target: parent, Added: n})
}

// Remove detaches n from its parent. Removing a detached node is a no-op.
func (h *Host) Remove(n *html.Node) bool {
	if n == nil || n.Parent == nil {
		return false
	}
	parent := n.Parent
	parent.RemoveChild(n)
	h.record(MutationRecord{Type: ChildList, Target: parent, Removed: n})
	return true
}

// GetAttribute returns the value of an attribute.
func (h *Host) GetAttribute(el *html.Node, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttribute sets or adds an attribute.
func (h *Host) SetAttribute(el *html.Node, name, val string) {
	for i, a := range el.Attr {
		if a.Namespace == "" && a.Key == name {
			if a.Val == val {
				return
			}
			el.Attr[i].Val = val
			h.record(MutationRecord{Type: Attributes, Target: el, Attribute: name, OldValue: a.Val})
			return
		}
	}
	el.Attr = append(el.Attr, html.Attribute{Key: name, Val: val})
	h.record(MutationRecord{Type: Attributes, Target: el, Attribute: name})
}

// RemoveAttribute removes an attribute if present.
func (h *Host) RemoveAttribute(el *html.Node, name string) bool {
	for i, a := range el.Attr {
		if a.Namespace == "" && a.Key == name {
			el.Attr = append(el.Attr[:i], el.Attr[i+1:]...)
			h.record(MutationRecord{Type: Attributes, Target: el, Attribute: name, OldValue: a.Val})
			return true
		}
	}
	return false
}

// SetText replaces the data of a text node.
func (h *Host) SetText(n *html.Node, data string) {
	if n.Data == data {
		return
	}
	old := n.Data
	n.Data = data
	h.record(MutationRecord{Type: CharacterData, Target: n, OldValue: old})
}

// Connected reports whether n still has a parent.
func Connected(n *html.Node) bool {
	return n != nil && n.Parent != nil
}

// Clone deep-copies a node and its subtree. Properties and listeners are not
// copied.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// OuterHTML serializes n.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// TextContent concatenates the text nodes below n.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			sb.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// FindByID returns the first element below root whose id attribute matches.
func FindByID(root *html.Node, id string) *html.Node {
	if root.Type == html.ElementNode {
		for _, a := range root.Attr {
			if a.Key == "id" && a.Val == id {
				return root
			}
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
