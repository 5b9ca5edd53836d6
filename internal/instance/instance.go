// Package instance implements one live rendering of a compiled template: the
// cloned root, its ordered parts and the values last applied to them.
package instance

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/compiler"
	"github.com/livefir/livepart/internal/descriptor"
	lperrors "github.com/livefir/livepart/internal/errors"
	"github.com/livefir/livepart/internal/marker"
	"github.com/livefir/livepart/internal/part"
)

type pendingValue struct{}

// pending marks a slot that has not been applied yet.
var pending any = pendingValue{}

// Instance owns a cloned root and one part per dynamic slot.
type Instance struct {
	h        part.Helpers
	env      *part.Env
	root     *html.Node
	compiled *compiler.Compiled

	parts  []part.Part // indexed like the value array
	order  []int       // attr/event parts first
	values []any

	removed bool
}

// New builds an instance over root, which must be an unmodified clone of
// compiled.Root.
func New(root *html.Node, compiled *compiler.Compiled, p *marker.Protocol, h part.Helpers) (*Instance, error) {
	ds := descriptor.Extract(root, p)
	if len(ds) != compiled.Slots {
		return nil, lperrors.Compilation("instantiate", nil,
			"template %s: root has %d slots, compiled template has %d (root is not a fresh clone)",
			compiled.ID, len(ds), compiled.Slots)
	}

	inst := &Instance{
		h:        h,
		env:      h.Env(),
		root:     root,
		compiled: compiled,
		parts:    make([]part.Part, len(ds)),
		order:    descriptor.Partition(ds),
		values:   make([]any, len(ds)),
	}
	for i, d := range ds {
		inst.parts[i] = h.CreatePart(d)
		inst.values[i] = pending
	}

	inst.env.Metrics.IncrementInstanceCreated()
	return inst, nil
}

// Root returns the instance's root node.
func (inst *Instance) Root() *html.Node {
	return inst.root
}

// Compiled returns the compiled template the instance was cloned from.
func (inst *Instance) Compiled() *compiler.Compiled {
	return inst.compiled
}

// Parts returns the parts indexed like the value array.
func (inst *Instance) Parts() []part.Part {
	return inst.parts
}

// Values returns a copy of the last applied values.
func (inst *Instance) Values() []any {
	out := make([]any, len(inst.values))
	for i, v := range inst.values {
		if v != pending {
			out[i] = v
		}
	}
	return out
}

// Update applies values to the parts, attribute and event parts first. A
// value identical to the previous one is skipped, except a template root,
// whose inner values may have changed. Missing trailing values are nil.
func (inst *Instance) Update(values []any) {
	if inst.removed {
		return
	}
	if len(values) != len(inst.parts) {
		inst.env.Metrics.IncrementArityMismatch()
		inst.env.Logger.Warn("value count does not match template slots",
			"component", "instance",
			"template", inst.compiled.ID,
			"error", lperrors.ArityMismatch("update", len(inst.parts), len(values)))
	}

	for _, i := range inst.order {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if part.Identical(v, inst.values[i]) && !inst.isTemplateRoot(v) {
			inst.env.Metrics.IncrementPartSkipped()
			continue
		}
		inst.parts[i].Apply(v)
		inst.values[i] = v
	}
}

func (inst *Instance) isTemplateRoot(v any) bool {
	n, ok := v.(*html.Node)
	if !ok || n == nil {
		return false
	}
	_, ok = inst.h.Lookup(n)
	return ok
}

// Remove removes every part and then detaches the root.
func (inst *Instance) Remove() {
	if inst.removed {
		return
	}
	inst.removed = true
	for _, p := range inst.parts {
		p.Remove()
	}
	inst.env.Host.Remove(inst.root)
	inst.h.Forget(inst.root)
	inst.env.Metrics.IncrementInstanceRemoved()
}

// Removed reports whether the instance was removed.
func (inst *Instance) Removed() bool {
	return inst.removed
}
