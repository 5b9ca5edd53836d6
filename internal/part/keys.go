package part

import (
	"fmt"
	"reflect"

	"golang.org/x/net/html"
)

// Keyed wraps a list item with an explicit key. The item's part renders
// Value; Key only identifies it across updates.
type Keyed struct {
	Key   any
	Value any
}

// KeyedItem is implemented by list items that carry their own key.
type KeyedItem interface {
	ItemKey() any
}

// indexKey is the positional fallback key; it never collides with an
// explicit int key.
type indexKey int

// keyOf derives the reconciliation key of item i and the value its part
// renders. Order: explicit key on the item, key attribute of a rendered
// template root, position.
func (p *ListPart) keyOf(item any, i int) (any, any) {
	switch it := item.(type) {
	case Keyed:
		if !IsNil(it.Key) {
			return normalizeKey(it.Key), it.Value
		}
		return indexKey(i), it.Value
	case *Keyed:
		if it == nil {
			return indexKey(i), nil
		}
		if !IsNil(it.Key) {
			return normalizeKey(it.Key), it.Value
		}
		return indexKey(i), it.Value
	case KeyedItem:
		if k := it.ItemKey(); !IsNil(k) {
			return normalizeKey(k), item
		}
	case map[string]any:
		if k, ok := it["key"]; ok && !IsNil(k) {
			return normalizeKey(k), item
		}
	case *html.Node:
		if k, ok := p.h.RootKey(it); ok && !IsNil(k) {
			return normalizeKey(k), item
		}
		return indexKey(i), item
	}

	if k, ok := structKey(item); ok {
		return normalizeKey(k), item
	}
	return indexKey(i), item
}

// structKey reads an exported Key field from a struct or struct pointer.
func structKey(item any) (any, bool) {
	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	f := rv.FieldByName("Key")
	if !f.IsValid() || !f.CanInterface() {
		return nil, false
	}
	k := f.Interface()
	if IsNil(k) {
		return nil, false
	}
	return k, true
}

// normalizeKey makes k usable as a map key.
func normalizeKey(k any) any {
	if k == nil {
		return nil
	}
	if !reflect.TypeOf(k).Comparable() {
		return fmt.Sprint(k)
	}
	return k
}
