package preview

import (
	"fmt"
	"slices"

	"github.com/livefir/livepart"
)

const historyLimit = 10

var (
	counterView = livepart.HTML(
		`<section class="counter"><h1 id="count">`, `</h1>`+
			`<button id="dec" onclick=`, `>-</button>`+
			`<button id="inc" onclick=`, `>+</button>`+
			`<button id="reverse" @click=`, `>reverse</button>`+
			`<ul class="history">`, `</ul></section>`)

	historyView = livepart.HTML(`<li key=`, `>`, `</li>`)
)

type historyEntry struct {
	id    int
	label string
}

// Counter is the demo component: a counter with a keyed history list.
type Counter struct {
	count   int
	nextID  int
	history []historyEntry
}

// NewCounter returns a Counter as a Component.
func NewCounter() Component {
	return &Counter{}
}

// Count returns the current count.
func (c *Counter) Count() int {
	return c.count
}

func (c *Counter) increment() { c.add(1) }
func (c *Counter) decrement() { c.add(-1) }

func (c *Counter) add(delta int) {
	c.count += delta
	c.nextID++
	c.history = append(c.history, historyEntry{
		id:    c.nextID,
		label: fmt.Sprintf("%+d → %d", delta, c.count),
	})
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
}

func (c *Counter) reverse(*livepart.Event) {
	slices.Reverse(c.history)
}

// Render implements Component.
func (c *Counter) Render(e *livepart.Engine, r *livepart.Root) error {
	items := make([]any, len(c.history))
	for i, h := range c.history {
		node, err := e.Render(historyView, h.id, h.label)
		if err != nil {
			return err
		}
		items[i] = node
	}
	return r.Render(counterView, c.count, c.decrement, c.increment, c.reverse, items)
}
