package store

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/compiler"
)

func TestStore(t *testing.T) {
	c := compiler.New(compiler.Options{})
	compiled, err := c.Compile(compiler.NewTemplate([]string{"<p>", "</p>"}))
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	root := compiled.Clone()

	if _, ok := s.Lookup(root); ok {
		t.Fatal("unknown root must have no entry")
	}
	if _, ok := s.Lookup(nil); ok {
		t.Fatal("nil root must have no entry")
	}

	s.Set(root, compiled, []any{1})
	entry, ok := s.Lookup(root)
	if !ok || entry.Compiled != compiled {
		t.Fatalf("Lookup() = %+v, %v", entry, ok)
	}

	s.Set(root, compiled, []any{2})
	values, ok := s.Values(root)
	if !ok || len(values) != 1 || values[0] != 2 {
		t.Errorf("Values() = %v, %v; want [2], true", values, ok)
	}

	other := &html.Node{Type: html.ElementNode, Data: "p"}
	if _, ok := s.Values(other); ok {
		t.Error("entries are keyed by node identity")
	}

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	s.Delete(root)
	if _, ok := s.Lookup(root); ok {
		t.Error("deleted root still has an entry")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Delete", s.Len())
	}
}
