package livepart

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/dom"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func TestCounterTextUpdate(t *testing.T) {
	e := newTestEngine(t)
	counter := HTML(`<p>`, `</p>`)

	root, err := e.Render(counter, 0)
	require.NoError(t, err)
	inst, err := e.Instantiate(root)
	require.NoError(t, err)
	require.Equal(t, "0", dom.TextContent(root))

	var records []dom.MutationRecord
	stop := e.Host().Observe(func(r dom.MutationRecord) { records = append(records, r) })
	e.Update(inst, 1)
	stop()

	require.Len(t, records, 1, "exactly one mutation")
	assert.Equal(t, dom.CharacterData, records[0].Type)
	assert.Equal(t, "0", records[0].OldValue)
	assert.Equal(t, "1", records[0].Target.Data)
}

func TestClickHandlerSwap(t *testing.T) {
	e := newTestEngine(t)
	button := HTML(`<button id="b" onclick=`, `>go</button>`)

	var first, second int
	root, err := e.Render(button, func() { first++ })
	require.NoError(t, err)
	inst, err := e.Instantiate(root)
	require.NoError(t, err)

	e.Update(inst, func() { second++ })
	invoked := e.Dispatch(root, "click", nil)

	assert.Equal(t, 1, invoked)
	assert.Equal(t, 0, first, "the first listener is detached")
	assert.Equal(t, 1, second, "the second listener is attached once")
	_, hasAttr := e.Host().GetAttribute(root, "onclick")
	assert.False(t, hasAttr, "event attributes are not rendered")
}

func TestRenderRecordsValues(t *testing.T) {
	e := newTestEngine(t)
	tmpl := HTML(`<p class=`, `>`, `</p>`)

	root, err := e.Render(tmpl, "a", 1)
	require.NoError(t, err)

	values, ok := e.GetValues(root)
	require.True(t, ok)
	assert.Equal(t, []any{"a", 1}, values)

	inst, err := e.Instantiate(root)
	require.NoError(t, err)
	e.Update(inst, "b", 2)
	values, _ = e.GetValues(root)
	assert.Equal(t, []any{"b", 2}, values)

	_, ok = e.GetValues(&html.Node{Type: html.ElementNode, Data: "p"})
	assert.False(t, ok)
}

func TestRenderSharesCompiledTemplate(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Render(HTML(`<li>`, `</li>`), 1)
	require.NoError(t, err)
	b, err := e.Render(HTML(`<li>`, `</li>`), 2)
	require.NoError(t, err)

	assert.NotSame(t, a, b, "every render gets its own clone")
	stats := e.CacheStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestRenderCompilationError(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Render(HTML(`<textarea>`, `</textarea>`), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompilation)
	assert.Equal(t, int64(1), e.Metrics().CompileErrors)
}

func TestInstantiateUnknownNode(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Instantiate(&html.Node{Type: html.ElementNode, Data: "p"})
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestNestedTemplatesAndLists(t *testing.T) {
	e := newTestEngine(t)
	item := HTML(`<li key=`, `>`, `</li>`)
	list := NewTemplate([]string{`<ul>`, `</ul>`}, WithListSlots(0))
	page := HTML(`<main><h1>`, `</h1>`, `</main>`)

	render := func(title string, names ...string) *html.Node {
		items := make([]*html.Node, len(names))
		for i, n := range names {
			node, err := e.Render(item, n, n)
			require.NoError(t, err)
			items[i] = node
		}
		ul, err := e.Render(list, items)
		require.NoError(t, err)
		root, err := e.Render(page, title, ul)
		require.NoError(t, err)
		return root
	}

	root := render("todo", "a", "b", "c")
	inst, err := e.Instantiate(root)
	require.NoError(t, err)
	assert.Equal(t, `<main><h1>todo</h1><ul><li key="a">a</li><li key="b">b</li><li key="c">c</li></ul></main>`, withoutComments(root))

	ul := root.FirstChild.NextSibling
	liB := ul.FirstChild.NextSibling.NextSibling

	next := render("done", "c", "b")
	values, _ := e.GetValues(next)
	e.Update(inst, values...)

	assert.Equal(t, `<main><h1>done</h1><ul><li key="c">c</li><li key="b">b</li></ul></main>`, withoutComments(root))
	assert.Same(t, ul, root.FirstChild.NextSibling, "the nested list template is reused")
	found := false
	for c := ul.FirstChild; c != nil; c = c.NextSibling {
		if c == liB {
			found = true
		}
	}
	assert.True(t, found, "keyed items keep their element")
}

func TestTracerOption(t *testing.T) {
	tracer := &countingTracer{}
	e := newTestEngine(t, WithTracer(tracer))

	root, err := e.Render(HTML(`<p title=`, `>`, `</p>`), "t", "x")
	require.NoError(t, err)
	inst, err := e.Instantiate(root)
	require.NoError(t, err)
	require.Equal(t, 2, tracer.calls)

	e.Update(inst, "t", "y")
	assert.Equal(t, 3, tracer.calls, "only the changed slot is applied")

	m := e.Metrics()
	assert.Equal(t, int64(3), m.PartsApplied)
	assert.Equal(t, int64(1), m.PartsSkipped)
}

type countingTracer struct {
	calls int
}

func (c *countingTracer) PartApplied(Part, any, any) {
	c.calls++
}

func withoutComments(n *html.Node) string {
	clone := dom.Clone(n)
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		for c := x.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.CommentNode {
				x.RemoveChild(c)
			} else {
				walk(c)
			}
			c = next
		}
	}
	walk(clone)
	return dom.OuterHTML(clone)
}

func TestEngineStatistics(t *testing.T) {
	e := newTestEngine(t)
	row := HTML(`<li class=`, `>`, `</li>`)
	button := HTML(`<button onclick=`, `>go</button>`)

	for i := 0; i < 3; i++ {
		_, err := e.Render(row, "odd", i)
		require.NoError(t, err)
	}
	root, err := e.Render(button, func() {})
	require.NoError(t, err)
	_, err = e.Instantiate(root)
	require.NoError(t, err)

	e.Dispatch(root, "click", nil)
	e.Dispatch(root, "click", nil)
	e.Dispatch(root, "input", nil)
	assert.Equal(t, map[string]int64{"click": 2, "input": 1}, e.DispatchCounts())

	assert.InDelta(t, 50.0, e.CacheHitRate(), 0.01, "two misses then two hits")
	assert.Len(t, e.LargestTemplates(10), 2)
	assert.Len(t, e.LargestTemplates(1), 1)
	assert.Equal(t, 2, e.MemoryStatus().Templates)

	e.ResetMetrics()
	assert.Empty(t, e.DispatchCounts())
	assert.Zero(t, e.Metrics().CacheHits)
	assert.Zero(t, e.CacheHitRate())
	assert.Equal(t, 2, e.CacheStats().Entries, "reset keeps compiled templates")
}

func TestDispatchCountsAreBounded(t *testing.T) {
	e := newTestEngine(t)
	root, err := e.Render(HTML(`<p>`, `</p>`), "x")
	require.NoError(t, err)

	for i := 0; i < maxDispatchTypes+8; i++ {
		e.Dispatch(root, fmt.Sprintf("custom-%d", i), nil)
	}
	e.Dispatch(root, "custom-0", nil)

	counts := e.DispatchCounts()
	assert.Len(t, counts, maxDispatchTypes+1)
	assert.Equal(t, int64(8), counts[OtherEvents])
	assert.Equal(t, int64(2), counts["custom-0"], "known types keep counting")
}
