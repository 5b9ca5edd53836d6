package livepart

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/part"
)

// Root renders templates into a container element. Consecutive renders of
// the same template update the existing instance instead of replacing it.
type Root struct {
	e         *Engine
	container *html.Node
	part      *part.ValuePart
}

// Attach appends an anchor comment to container and returns a Root that
// renders before it. Existing children of container are left alone.
func (e *Engine) Attach(container *html.Node) *Root {
	anchor := e.host.CreateComment("")
	e.host.AppendChild(container, anchor)
	return &Root{
		e:         e,
		container: container,
		part:      part.NewValuePart(anchor, e.helpers),
	}
}

// Render renders t with values into the container. A compilation error is
// returned and leaves the container untouched.
func (r *Root) Render(t *Template, values ...any) error {
	node, err := r.e.Render(t, values...)
	if err != nil {
		return err
	}
	r.part.Apply(node)
	return nil
}

// Set renders an arbitrary value (text, node, rendered root or list) into
// the container.
func (r *Root) Set(v any) {
	r.part.Apply(v)
}

// Clear removes the rendered content and keeps the root usable.
func (r *Root) Clear() {
	r.part.Clear()
}

// Detach removes the rendered content and the anchor. The root cannot be
// rendered into afterwards.
func (r *Root) Detach() {
	r.part.Remove()
}

// Container returns the element the root renders into.
func (r *Root) Container() *html.Node {
	return r.container
}

// Instance returns the active template instance, or nil.
func (r *Root) Instance() *Instance {
	inst, _ := r.part.Instance().(*Instance)
	return inst
}
