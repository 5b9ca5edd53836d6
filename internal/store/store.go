// Package store associates rendered template roots with the compiled template
// they came from and the dynamic values they were rendered with.
package store

import (
	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/compiler"
	"github.com/livefir/livepart/internal/dom"
)

// Entry is what the store remembers about one rendered root.
type Entry struct {
	Compiled *compiler.Compiled
	Values   []any
}

// Store is a weakly keyed side table: an entry lives as long as its root node.
type Store struct {
	table *dom.WeakMap[Entry]
}

// New creates an empty store.
func New() *Store {
	return &Store{table: dom.NewWeakMap[Entry]()}
}

// Set records the compiled template and values of a rendered root,
// overwriting any earlier entry.
func (s *Store) Set(root *html.Node, compiled *compiler.Compiled, values []any) {
	s.table.Set(root, Entry{Compiled: compiled, Values: values})
}

// Lookup returns the entry of a rendered root. A node that is not a rendered
// root has no entry.
func (s *Store) Lookup(root *html.Node) (Entry, bool) {
	if root == nil {
		return Entry{}, false
	}
	return s.table.Get(root)
}

// Values returns the values recorded for a rendered root.
func (s *Store) Values(root *html.Node) ([]any, bool) {
	e, ok := s.Lookup(root)
	if !ok {
		return nil, false
	}
	return e.Values, true
}

// Delete forgets a rendered root.
func (s *Store) Delete(root *html.Node) {
	s.table.Delete(root)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.table.Len()
}
