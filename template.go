package livepart

import (
	"github.com/livefir/livepart/internal/compiler"
	"github.com/livefir/livepart/internal/dom"
	"github.com/livefir/livepart/internal/part"
)

// Template is the static shape of a tagged literal: its string segments and
// which slots hold lists. Templates with equal segments share one compiled form.
type Template = compiler.Template

// Keyed pairs a list item with an explicit reconciliation key.
type Keyed = part.Keyed

// KeyedItem is implemented by list items that carry their own key.
type KeyedItem = part.KeyedItem

// Event is passed to event listeners.
type Event = dom.Event

// Listener is an event handler value for event slots.
type Listener = dom.Listener

// Tracer observes part updates.
type Tracer = part.Tracer

// Part is one dynamic slot of a rendered template.
type Part = part.Part

// TemplateOption configures NewTemplate.
type TemplateOption func(*templateOptions)

type templateOptions struct {
	listSlots []int
}

// WithListSlots marks slots that render keyed collections before their own
// list marker instead of a value marker.
func WithListSlots(slots ...int) TemplateOption {
	return func(o *templateOptions) {
		o.listSlots = append(o.listSlots, slots...)
	}
}

// NewTemplate creates a template from its static segments. A template with
// n segments has n-1 slots.
func NewTemplate(segments []string, opts ...TemplateOption) *Template {
	var o templateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return compiler.NewTemplate(segments, o.listSlots...)
}

// HTML creates a template from its static segments, all slots being values.
//
//	var counter = livepart.HTML(`<p>`, `</p>`)
func HTML(segments ...string) *Template {
	return compiler.NewTemplate(segments)
}
