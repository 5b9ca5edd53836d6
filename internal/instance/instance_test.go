package instance_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/compiler"
	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
	lperrors "github.com/livefir/livepart/internal/errors"
	"github.com/livefir/livepart/internal/instance"
	"github.com/livefir/livepart/internal/marker"
	"github.com/livefir/livepart/internal/metrics"
	"github.com/livefir/livepart/internal/part"
	"github.com/livefir/livepart/internal/store"
)

type orderTracer struct {
	kinds []descriptor.Kind
}

func (o *orderTracer) PartApplied(p part.Part, next, prev any) {
	o.kinds = append(o.kinds, p.Kind())
}

type helpers struct {
	protocol *marker.Protocol
	compiler *compiler.Compiler
	store    *store.Store
	env      *part.Env
}

func newHelpers(tracer part.Tracer) *helpers {
	collector := metrics.NewCollector()
	return &helpers{
		protocol: marker.Default(),
		compiler: compiler.New(compiler.Options{Metrics: collector}),
		store:    store.New(),
		env: &part.Env{
			Host:         dom.NewHost(),
			Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
			Metrics:      collector,
			Tracer:       tracer,
			KeyAttribute: "key",
		},
	}
}

func (h *helpers) CreatePart(d descriptor.Descriptor) part.Part { return part.New(d, h) }

func (h *helpers) CreateTemplateInstance(root *html.Node) (part.TemplateInstance, error) {
	entry, ok := h.store.Lookup(root)
	if !ok {
		return nil, lperrors.UnknownNode("create instance")
	}
	return instance.New(root, entry.Compiled, h.protocol, h)
}

func (h *helpers) Lookup(root *html.Node) (store.Entry, bool) { return h.store.Lookup(root) }
func (h *helpers) Forget(root *html.Node)                     { h.store.Delete(root) }
func (h *helpers) RootKey(*html.Node) (any, bool)             { return nil, false }
func (h *helpers) Env() *part.Env                             { return h.env }

func (h *helpers) instantiate(t *testing.T, segments []string, lists ...int) *instance.Instance {
	t.Helper()
	compiled, err := h.compiler.Compile(compiler.NewTemplate(segments, lists...))
	require.NoError(t, err)
	inst, err := instance.New(compiled.Clone(), compiled, h.protocol, h)
	require.NoError(t, err)
	return inst
}

func TestPartCountMatchesSlots(t *testing.T) {
	h := newHelpers(nil)
	segments := []string{`<div class=`, `><button onclick=`, `>`, `</button><ul>`, `</ul></div>`}

	for range 3 {
		inst := h.instantiate(t, segments, 3)
		assert.Len(t, inst.Parts(), 4)
		assert.Equal(t, descriptor.Attr, inst.Parts()[0].Kind())
		assert.Equal(t, descriptor.Event, inst.Parts()[1].Kind())
		assert.Equal(t, descriptor.Value, inst.Parts()[2].Kind())
		assert.Equal(t, descriptor.List, inst.Parts()[3].Kind())
	}
}

func TestUpdateAppliesStaticPartsFirst(t *testing.T) {
	tracer := &orderTracer{}
	h := newHelpers(tracer)
	inst := h.instantiate(t, []string{`<div>`, `<span title=`, `>`, `</span><i onclick=`, `></i></div>`})

	inst.Update([]any{"a", "t", "b", func() {}})

	assert.Equal(t, []descriptor.Kind{descriptor.Attr, descriptor.Event, descriptor.Value, descriptor.Value}, tracer.kinds)
}

func TestUpdateIsIdempotent(t *testing.T) {
	h := newHelpers(nil)
	inst := h.instantiate(t, []string{`<p class=`, `>`, ` and `, `</p>`})
	values := []any{"c", 1, []string{"x", "y"}}
	inst.Update(values)

	var records []dom.MutationRecord
	stop := h.env.Host.Observe(func(r dom.MutationRecord) { records = append(records, r) })
	inst.Update(values)
	inst.Update([]any{"c", 1, values[2]})
	stop()

	assert.Empty(t, records, "identical values produce no mutations")
	assert.Equal(t, `<p class="c">1 and xy</p>`, stripComments(inst.Root()))
}

func TestUpdateArityMismatch(t *testing.T) {
	h := newHelpers(nil)
	inst := h.instantiate(t, []string{`<p title=`, `>`, `</p>`})

	inst.Update([]any{"t", "body"})
	inst.Update([]any{"t"})

	_, ok := h.env.Host.GetAttribute(inst.Root(), "title")
	assert.True(t, ok)
	assert.Equal(t, "", dom.TextContent(inst.Root()), "missing values clear their slots")

	inst.Update([]any{"t", "body", "extra"})
	assert.Equal(t, "body", dom.TextContent(inst.Root()), "extra values are ignored")
	assert.Equal(t, int64(2), h.env.Metrics.GetMetrics().ArityMismatches)
}

func TestValuesSkipsPending(t *testing.T) {
	h := newHelpers(nil)
	inst := h.instantiate(t, []string{`<p>`, `</p>`})
	assert.Equal(t, []any{nil}, inst.Values())

	inst.Update([]any{"v"})
	assert.Equal(t, []any{"v"}, inst.Values())
}

func TestRemove(t *testing.T) {
	h := newHelpers(nil)
	inst := h.instantiate(t, []string{`<p onclick=`, `>`, `</p>`})
	container := &html.Node{Type: html.ElementNode, Data: "div"}
	h.env.Host.AppendChild(container, inst.Root())

	inst.Update([]any{func() {}, "x"})
	require.Equal(t, 1, h.env.Host.ListenerCount(inst.Root(), "click"))

	inst.Remove()
	assert.True(t, inst.Removed())
	assert.Nil(t, container.FirstChild)
	assert.Equal(t, 0, h.env.Host.ListenerCount(inst.Root(), "click"))

	inst.Update([]any{func() {}, "y"})
	assert.Equal(t, 0, h.env.Host.ListenerCount(inst.Root(), "click"), "a removed instance ignores updates")
	inst.Remove()

	m := h.env.Metrics.GetMetrics()
	assert.Equal(t, int64(1), m.InstancesRemoved)
}

func TestNewRejectsModifiedRoot(t *testing.T) {
	h := newHelpers(nil)
	compiled, err := h.compiler.Compile(compiler.NewTemplate([]string{`<p>`, `</p>`}))
	require.NoError(t, err)

	root := compiled.Clone()
	root.RemoveChild(root.FirstChild)

	_, err = instance.New(root, compiled, h.protocol, h)
	assert.ErrorIs(t, err, lperrors.ErrCompilation)
}

// stripComments serializes n without marker comments.
func stripComments(n *html.Node) string {
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
