// Package part implements the live objects that own one dynamic slot each:
// attributes, event listeners, single values and keyed lists.
package part

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/compiler"
	"github.com/livefir/livepart/internal/descriptor"
	"github.com/livefir/livepart/internal/dom"
	"github.com/livefir/livepart/internal/metrics"
	"github.com/livefir/livepart/internal/store"
)

// State is the lifecycle state of a part.
type State int

const (
	Empty State = iota
	Populated
	Removed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Populated:
		return "populated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Part owns one dynamic slot.
type Part interface {
	Kind() descriptor.Kind
	// Apply commits a new value to the slot.
	Apply(v any)
	// Clear removes the content the part inserted but keeps its anchor.
	Clear()
	// Remove clears the part and deletes its anchor. It is terminal.
	Remove()
	// Value returns the last applied value.
	Value() any
	State() State
}

// TemplateInstance is the view parts have of a nested template instance.
type TemplateInstance interface {
	Root() *html.Node
	Compiled() *compiler.Compiled
	Update(values []any)
	Remove()
}

// Tracer observes every Apply call with the new and the previous value.
type Tracer interface {
	PartApplied(p Part, next, prev any)
}

// Env is the shared environment of all parts of one engine.
type Env struct {
	Host         *dom.Host
	Logger       *slog.Logger
	Metrics      *metrics.Collector
	Tracer       Tracer
	KeyAttribute string
}

// trace reports an Apply call to the tracer, whether or not it changes
// anything. Metrics are counted by the parts once the outcome is known.
func (e *Env) trace(p Part, next, prev any) {
	if e.Tracer != nil {
		e.Tracer.PartApplied(p, next, prev)
	}
}

// Helpers lets parts build further parts and nested template instances
// without this package depending on the instance implementation.
type Helpers interface {
	CreatePart(d descriptor.Descriptor) Part
	CreateTemplateInstance(root *html.Node) (TemplateInstance, error)
	// Lookup returns the value-store entry of a rendered template root.
	Lookup(root *html.Node) (store.Entry, bool)
	// Forget drops a rendered root from the value store.
	Forget(root *html.Node)
	// RootKey resolves the key attribute of a rendered template root.
	RootKey(root *html.Node) (any, bool)
	Env() *Env
}

// region is a part that occupies a contiguous run of siblings ending at its
// anchor, which is what a list needs to move it.
type region interface {
	Part
	firstNode() *html.Node
	anchorNode() *html.Node
}

// New creates the part described by d.
func New(d descriptor.Descriptor, h Helpers) Part {
	switch d.Kind {
	case descriptor.Attr:
		return NewAttributePart(d.Anchor, d.Name, h.Env())
	case descriptor.Event:
		return NewEventPart(d.Anchor, d.Name, h.Env())
	case descriptor.List:
		return NewListPart(d.Anchor, h)
	default:
		return NewValuePart(d.Anchor, h)
	}
}
