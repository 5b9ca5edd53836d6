package dom

import (
	"runtime"
	"sync"
	"weak"

	"golang.org/x/net/html"
)

// WeakMap associates values with nodes without keeping the nodes alive.
// Entries disappear once their node is garbage collected.
//
// A value that references its own node, such as a listener closure capturing
// its element, keeps that node reachable from the map, so the entry is never
// collected. Such entries must be removed with Delete.
type WeakMap[V any] struct {
	mu sync.Mutex
	m  map[weak.Pointer[html.Node]]V
}

// NewWeakMap creates an empty map.
func NewWeakMap[V any]() *WeakMap[V] {
	return &WeakMap[V]{m: make(map[weak.Pointer[html.Node]]V)}
}

// Set stores v for n, replacing any previous value.
func (w *WeakMap[V]) Set(n *html.Node, v V) {
	key := weak.Make(n)

	w.mu.Lock()
	_, existed := w.m[key]
	w.m[key] = v
	w.mu.Unlock()

	if !existed {
		runtime.AddCleanup(n, w.forget, key)
	}
}

// Get returns the value stored for n.
func (w *WeakMap[V]) Get(n *html.Node) (V, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.m[weak.Make(n)]
	return v, ok
}

// Delete removes the value stored for n.
func (w *WeakMap[V]) Delete(n *html.Node) {
	w.forget(weak.Make(n))
}

// Len returns the number of live entries.
func (w *WeakMap[V]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.m)
}

func (w *WeakMap[V]) forget(key weak.Pointer[html.Node]) {
	w.mu.Lock()
	delete(w.m, key)
	w.mu.Unlock()
}
