package livepart

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
	lperrors "github.com/livefir/livepart/internal/errors"
	"github.com/livefir/livepart/internal/instance"
	"github.com/livefir/livepart/internal/part"
	"github.com/livefir/livepart/internal/store"
)

// helpers gives parts access to the engine's store, factory and host.
type helpers struct {
	e *Engine
}

// CreatePart builds the part for one descriptor.
func (h *helpers) CreatePart(d descriptor.Descriptor) part.Part {
	return part.New(d, h)
}

// CreateTemplateInstance builds an instance over a rendered root without
// applying values.
func (h *helpers) CreateTemplateInstance(root *html.Node) (part.TemplateInstance, error) {
	entry, ok := h.e.store.Lookup(root)
	if !ok {
		return nil, lperrors.UnknownNode("create instance")
	}
	return instance.New(root, entry.Compiled, h.e.protocol, h)
}

// Lookup returns the store entry of a rendered root.
func (h *helpers) Lookup(root *html.Node) (store.Entry, bool) {
	return h.e.store.Lookup(root)
}

// Forget drops a rendered root from the value store.
func (h *helpers) Forget(root *html.Node) {
	h.e.store.Delete(root)
}

// RootKey resolves the key of a rendered root: an explicit key property,
// then the value bound to the root's key attribute, then a literal key
// attribute.
func (h *helpers) RootKey(root *html.Node) (any, bool) {
	if k, ok := h.e.host.Property(root, dom.KeyProperty); ok {
		return k, true
	}
	entry, ok := h.e.store.Lookup(root)
	if !ok {
		return nil, false
	}
	c := entry.Compiled
	if c.KeySlot >= 0 && c.KeySlot < len(entry.Values) && !part.IsNil(entry.Values[c.KeySlot]) {
		return entry.Values[c.KeySlot], true
	}
	if c.HasStaticKey {
		return c.StaticKey, true
	}
	return nil, false
}

// Env returns the environment shared by every part of this engine.
func (h *helpers) Env() *part.Env {
	return h.e.env
}
