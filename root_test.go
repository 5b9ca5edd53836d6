package livepart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livefir/livepart/internal/dom"
)

func container() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

func TestRootRenderReusesInstance(t *testing.T) {
	e := newTestEngine(t)
	c := container()
	r := e.Attach(c)
	greeting := HTML(`<p>Hello, `, `!</p>`)

	require.NoError(t, r.Render(greeting, "Ada"))
	inst := r.Instance()
	require.NotNil(t, inst)
	p := c.FirstChild

	require.NoError(t, r.Render(greeting, "Grace"))
	assert.Same(t, inst, r.Instance())
	assert.Same(t, p, c.FirstChild)
	assert.Equal(t, "Hello, Grace!", dom.TextContent(c))
	assert.Same(t, c, r.Container())
}

func TestRootKeepsSiblingContent(t *testing.T) {
	e := newTestEngine(t)
	c := container()
	header := &html.Node{Type: html.ElementNode, Data: "header", DataAtom: atom.Header}
	c.AppendChild(header)

	r := e.Attach(c)
	require.NoError(t, r.Render(HTML(`<main>`, `</main>`), "body"))

	assert.Same(t, header, c.FirstChild)
	assert.Equal(t, "main", header.NextSibling.Data)

	err := r.Render(HTML(`<textarea>`, `</textarea>`), "x")
	require.ErrorIs(t, err, ErrCompilation)
	assert.Equal(t, "main", header.NextSibling.Data, "a failed render leaves the container alone")

	r.Clear()
	assert.Same(t, header, c.FirstChild)
	assert.Equal(t, html.CommentNode, header.NextSibling.Type)
	assert.Nil(t, r.Instance())

	r.Set("plain")
	assert.Equal(t, "plain", dom.TextContent(c))

	r.Detach()
	assert.Same(t, header, c.LastChild)
}

func TestRootDetachReleasesListeners(t *testing.T) {
	e := newTestEngine(t)
	c := container()
	r := e.Attach(c)
	button := HTML(`<button id="go" onclick=`, `>go</button>`)
	item := HTML(`<li key=`, ` @select=`, `>`, `</li>`)
	layout := HTML(`<div>`, `<ul>`, `</ul></div>`)

	var clicked *html.Node
	listener := func(ev *Event) { clicked = ev.CurrentTarget }
	require.NoError(t, r.Render(layout,
		mustRender(t, e, button, listener),
		[]any{mustRender(t, e, item, "a", listener, "a")}))
	require.Equal(t, 2, e.Host().ListenerNodes())

	e.Dispatch(dom.FindByID(c, "go"), "click", nil)
	require.NotNil(t, clicked)

	r.Detach()
	assert.Zero(t, e.Host().ListenerNodes(), "detaching a root releases every listener it attached")
}

func mustRender(t *testing.T, e *Engine, tmpl *Template, values ...any) *html.Node {
	t.Helper()
	n, err := e.Render(tmpl, values...)
	require.NoError(t, err)
	return n
}
