package compiler

import (
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/zeebo/blake3"
)

// Template is the identity of one template declaration: its static segments
// and the slots declared as lists. It is immutable once built.
type Template struct {
	id        string
	segments  []string
	listSlots map[int]bool
}

// NewTemplate builds a template identity. Slot i sits between segments[i] and
// segments[i+1].
func NewTemplate(segments []string, listSlots ...int) *Template {
	segs := make([]string, len(segments))
	copy(segs, segments)
	if len(segs) == 0 {
		segs = []string{""}
	}

	lists := make(map[int]bool, len(listSlots))
	for _, i := range listSlots {
		lists[i] = true
	}

	return &Template{
		id:        digest(segs, listSlots),
		segments:  segs,
		listSlots: lists,
	}
}

// digest hashes the length-prefixed segments and the sorted list slots.
func digest(segments []string, listSlots []int) string {
	h := blake3.New()
	var buf [binary.MaxVarintLen64]byte
	for _, s := range segments {
		n := binary.PutUvarint(buf[:], uint64(len(s)))
		h.Write(buf[:n])
		h.Write([]byte(s))
	}

	slots := append([]int(nil), listSlots...)
	sort.Ints(slots)
	h.Write([]byte{0xff})
	for _, i := range slots {
		n := binary.PutUvarint(buf[:], uint64(i))
		h.Write(buf[:n])
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// ID returns the identity digest shared by every template with the same shape.
func (t *Template) ID() string {
	return t.id
}

// Segments returns a copy of the static segments.
func (t *Template) Segments() []string {
	return append([]string(nil), t.segments...)
}

// Slots returns the number of dynamic slots.
func (t *Template) Slots() int {
	return len(t.segments) - 1
}

// IsList reports whether slot i was declared as a list slot.
func (t *Template) IsList(i int) bool {
	return t.listSlots[i]
}
