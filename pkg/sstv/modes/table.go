package modes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedMode is returned for a VIS code with no descriptor.
var ErrUnsupportedMode = errors.New("unsupported mode")

// Table maps VIS codes to descriptors. A Table is read-only once built and
// safe for concurrent use.
type Table struct {
	byCode map[uint8]*Descriptor
	all    []*Descriptor
}

// NewTable builds a table from the given descriptors.
func NewTable(descs ...Descriptor) (*Table, error) {
	t := &Table{byCode: make(map[uint8]*Descriptor, len(descs))}
	for i := range descs {
		d := descs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if prev, ok := t.byCode[d.VIS]; ok {
			return nil, fmt.Errorf("VIS 0x%02X used by both %s and %s", d.VIS, prev.Name, d.Name)
		}
		t.byCode[d.VIS] = &d
		t.all = append(t.all, &d)
	}
	sort.Slice(t.all, func(i, j int) bool { return t.all[i].VIS < t.all[j].VIS })
	return t, nil
}

// Lookup resolves a 7-bit VIS code.
func (t *Table) Lookup(code uint8) (*Descriptor, error) {
	if d, ok := t.byCode[code]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: VIS 0x%02X", ErrUnsupportedMode, code)
}

// ByName finds a mode by its full or short name, ignoring case.
func (t *Table) ByName(name string) (*Descriptor, bool) {
	for _, d := range t.all {
		if strings.EqualFold(d.Name, name) || strings.EqualFold(d.ShortName, name) {
			return d, true
		}
	}
	return nil, false
}

// All returns the descriptors ordered by VIS code.
func (t *Table) All() []*Descriptor {
	out := make([]*Descriptor, len(t.all))
	copy(out, t.all)
	return out
}

// Len returns the number of modes in the table.
func (t *Table) Len() int {
	return len(t.all)
}

var defaultTable = mustTable(builtin()...)

// Default returns the built-in mode table.
func Default() *Table {
	return defaultTable
}

func mustTable(descs ...Descriptor) *Table {
	t, err := NewTable(descs...)
	if err != nil {
		panic(err)
	}
	return t
}
