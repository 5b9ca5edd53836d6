package part_test

import (
	"io"
	"log/slog"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

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

// harness is a minimal engine: it renders templates into the store and
// implements part.Helpers on top of it.
type harness struct {
	t        testing.TB
	protocol *marker.Protocol
	compiler *compiler.Compiler
	store    *store.Store
	env      *part.Env
	tracer   *recorder
}

func newHarness(t testing.TB) *harness {
	t.Helper()
	tracer := &recorder{}
	collector := metrics.NewCollector()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &harness{
		t:        t,
		protocol: marker.Default(),
		compiler: compiler.New(compiler.Options{Metrics: collector, Logger: logger}),
		store:    store.New(),
		tracer:   tracer,
		env: &part.Env{
			Host:         dom.NewHost(),
			Logger:       logger,
			Metrics:      collector,
			Tracer:       tracer,
			KeyAttribute: "key",
		},
	}
}

func (h *harness) CreatePart(d descriptor.Descriptor) part.Part {
	return part.New(d, h)
}

func (h *harness) CreateTemplateInstance(root *html.Node) (part.TemplateInstance, error) {
	entry, ok := h.store.Lookup(root)
	if !ok {
		return nil, lperrors.UnknownNode("create instance")
	}
	return instance.New(root, entry.Compiled, h.protocol, h)
}

func (h *harness) Lookup(root *html.Node) (store.Entry, bool) {
	return h.store.Lookup(root)
}

func (h *harness) Forget(root *html.Node) {
	h.store.Delete(root)
}

func (h *harness) RootKey(root *html.Node) (any, bool) {
	if k, ok := h.env.Host.Property(root, dom.KeyProperty); ok {
		return k, true
	}
	entry, ok := h.store.Lookup(root)
	if !ok {
		return nil, false
	}
	if c := entry.Compiled; c.KeySlot >= 0 && c.KeySlot < len(entry.Values) {
		return entry.Values[c.KeySlot], true
	} else if c.HasStaticKey {
		return c.StaticKey, true
	}
	return nil, false
}

func (h *harness) Env() *part.Env {
	return h.env
}

// render compiles segments and records values against a fresh clone.
func (h *harness) render(tmpl *compiler.Template, values ...any) *html.Node {
	h.t.Helper()
	compiled, err := h.compiler.Compile(tmpl)
	if err != nil {
		h.t.Fatalf("compile: %v", err)
	}
	root := compiled.Clone()
	h.store.Set(root, compiled, values)
	return root
}

// slot returns a container element holding a single anchor comment.
func (h *harness) slot() (*html.Node, *html.Node) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	anchor := h.env.Host.CreateComment("")
	h.env.Host.AppendChild(container, anchor)
	return container, anchor
}

// observe counts mutation records until the returned stop function runs.
func (h *harness) observe() (*[]dom.MutationRecord, func()) {
	var records []dom.MutationRecord
	stop := h.env.Host.Observe(func(r dom.MutationRecord) {
		records = append(records, r)
	})
	return &records, stop
}

type applyCall struct {
	part       part.Part
	next, prev any
}

type recorder struct {
	calls []applyCall
}

func (r *recorder) PartApplied(p part.Part, next, prev any) {
	r.calls = append(r.calls, applyCall{part: p, next: next, prev: prev})
}

func (r *recorder) reset() {
	r.calls = nil
}

// callsFor returns the Apply calls made on p.
func (r *recorder) callsFor(p part.Part) []applyCall {
	var out []applyCall
	for _, c := range r.calls {
		if c.part == p {
			out = append(out, c)
		}
	}
	return out
}

// childTexts returns the text content of each element child of n.
func childTexts(n *html.Node) []string {
	var out []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, dom.TextContent(c))
		}
	}
	return out
}
