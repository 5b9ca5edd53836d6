package dom

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

func TestInsertBeforeMovesAttachedNode(t *testing.T) {
	h := NewHost()
	parent := element("ul")
	a, b, c := element("li"), element("li"), element("li")
	h.AppendChild(parent, a)
	h.AppendChild(parent, b)
	h.AppendChild(parent, c)

	require.True(t, h.InsertBefore(c, a))

	var order []*html.Node
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		order = append(order, n)
	}
	assert.Equal(t, []*html.Node{c, a, b}, order)
}

func TestInsertBeforeDetachedReference(t *testing.T) {
	h := NewHost()
	assert.False(t, h.InsertBefore(element("p"), element("span")))
	assert.False(t, h.InsertBefore(element("p"), nil))
}

func TestMutationRecords(t *testing.T) {
	h := NewHost()
	parent := element("div")
	text := h.CreateText("a")
	h.AppendChild(parent, text)

	var records []MutationRecord
	stop := h.Observe(func(r MutationRecord) { records = append(records, r) })

	h.SetText(text, "a")
	h.SetAttribute(parent, "class", "x")
	h.SetAttribute(parent, "class", "x")
	h.SetText(text, "b")
	h.RemoveAttribute(parent, "class")
	h.RemoveAttribute(parent, "class")
	h.Remove(text)
	h.Remove(text)

	stop()
	h.AppendChild(parent, text)

	require.Len(t, records, 4)
	assert.Equal(t, Attributes, records[0].Type)
	assert.Equal(t, CharacterData, records[1].Type)
	assert.Equal(t, "a", records[1].OldValue)
	assert.Equal(t, Attributes, records[2].Type)
	assert.Equal(t, "x", records[2].OldValue)
	assert.Equal(t, ChildList, records[3].Type)
	assert.Same(t, text, records[3].Removed)
}

func TestProperties(t *testing.T) {
	h := NewHost()
	n := element("li")

	_, ok := h.Property(n, KeyProperty)
	assert.False(t, ok)

	h.SetProperty(n, KeyProperty, 42)
	h.SetProperty(n, "other", "x")
	v, ok := h.Property(n, KeyProperty)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	h.DeleteProperty(n, KeyProperty)
	_, ok = h.Property(n, KeyProperty)
	assert.False(t, ok)
	v, _ = h.Property(n, "other")
	assert.Equal(t, "x", v)

	// properties are per node and never cloned
	clone := Clone(n)
	_, ok = h.Property(clone, "other")
	assert.False(t, ok)
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	root := element("div", html.Attribute{Key: "class", Val: "a"})
	child := element("span")
	root.AppendChild(child)
	child.AppendChild(&html.Node{Type: html.TextNode, Data: "hi"})

	clone := Clone(root)
	require.NotSame(t, root, clone)
	assert.Nil(t, clone.Parent)
	assert.Equal(t, OuterHTML(root), OuterHTML(clone))

	clone.Attr[0].Val = "b"
	assert.Equal(t, "a", root.Attr[0].Val)
	assert.Equal(t, "hi", TextContent(clone))
}

func TestSerializationHelpers(t *testing.T) {
	root := element("div", html.Attribute{Key: "id", Val: "outer"})
	inner := element("p", html.Attribute{Key: "id", Val: "inner"})
	root.AppendChild(inner)
	inner.AppendChild(&html.Node{Type: html.TextNode, Data: "x < y"})

	assert.Equal(t, `<div id="outer"><p id="inner">x &lt; y</p></div>`, OuterHTML(root))
	assert.Equal(t, `<p id="inner">x &lt; y</p>`, InnerHTML(root))
	assert.Same(t, inner, FindByID(root, "inner"))
	assert.Same(t, root, FindByID(root, "outer"))
	assert.Nil(t, FindByID(root, "missing"))
}

func TestConnected(t *testing.T) {
	h := NewHost()
	parent := element("div")
	n := h.CreateComment("")
	assert.False(t, Connected(n))
	h.AppendChild(parent, n)
	assert.True(t, Connected(n))
	h.Remove(n)
	assert.False(t, Connected(n))
	assert.False(t, Connected(nil))
}

func TestWeakMapDropsCollectedNodes(t *testing.T) {
	w := NewWeakMap[int]()
	keep := element("p")
	w.Set(keep, 1)

	func() {
		for range 10 {
			w.Set(element("span"), 2)
		}
	}()
	require.Equal(t, 11, w.Len())

	// cleanups run asynchronously after collection
	deadline := time.Now().Add(2 * time.Second)
	for w.Len() > 1 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, w.Len())

	v, ok := w.Get(keep)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	runtime.KeepAlive(keep)
}

func TestWeakMapDelete(t *testing.T) {
	w := NewWeakMap[string]()
	n := element("p")
	w.Set(n, "a")
	w.Set(n, "b")
	assert.Equal(t, 1, w.Len())

	v, _ := w.Get(n)
	assert.Equal(t, "b", v)

	w.Delete(n)
	_, ok := w.Get(n)
	assert.False(t, ok)
	assert.Equal(t, 0, w.Len())
}
