// Package diff computes the structured, field-level delta between two
// BrokerConfiguration snapshots (C2). It is grounded on the alert-history service's
// DefaultConfigComparator (internal/config/update_diff.go): the map-based
// recursive comparison there becomes a fixed walk over config.Fields()
// here, since the reload-class metadata is attached at schema-definition
// time rather than recovered from a field-path prefix map.
package diff

import (
	"reflect"

	"github.com/four-robots/brokerctl/config"
)

// Entry is one differing field.
type Entry struct {
	Path  string
	Old   any
	New   any
	Class config.ReloadClass
}

// Diff is the ordered set of differing fields between two configurations.
type Diff struct {
	Entries []Entry
}

// Kind classifies a non-empty Diff for Controller routing.
type Kind int

const (
	// HotOnly means every entry is a HOT field; a live reload suffices.
	HotOnly Kind = iota
	// HasCold means at least one COLD field differs (no IMMUTABLE ones).
	HasCold
	// HasImmutable means at least one IMMUTABLE field differs.
	HasImmutable
)

// Compute returns the field-level diff between a and b, in the schema's
// canonical (depth-first, lexicographic) order. diff(a, a) is always empty.
func Compute(a, b *config.BrokerConfiguration) *Diff {
	d := &Diff{}
	for _, f := range config.Fields() {
		oldVal, newVal := f.Get(a), f.Get(b)
		if !reflect.DeepEqual(oldVal, newVal) {
			d.Entries = append(d.Entries, Entry{
				Path:  f.Path,
				Old:   oldVal,
				New:   newVal,
				Class: f.Class,
			})
		}
	}
	return d
}

// IsEmpty reports whether no fields differ.
func (d *Diff) IsEmpty() bool {
	return d == nil || len(d.Entries) == 0
}

// Classify reports the diff's Kind. Calling Classify on an empty diff is a
// caller error; callers must check IsEmpty first.
func (d *Diff) Classify() Kind {
	kind := HotOnly
	for _, e := range d.Entries {
		switch e.Class {
		case config.IMMUTABLE:
			return HasImmutable
		case config.COLD:
			kind = HasCold
		}
	}
	return kind
}

// HasImmutable reports whether any entry is an IMMUTABLE field.
func (d *Diff) HasImmutable() bool {
	for _, e := range d.Entries {
		if e.Class == config.IMMUTABLE {
			return true
		}
	}
	return false
}

// HasCold reports whether any entry is a COLD field.
func (d *Diff) HasCold() bool {
	for _, e := range d.Entries {
		if e.Class == config.COLD {
			return true
		}
	}
	return false
}

// Paths returns the differing field paths, in canonical order.
func (d *Diff) Paths() []string {
	paths := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		paths[i] = e.Path
	}
	return paths
}

// Equal reports whether two diffs carry the same path→(old,new) mapping.
func (d *Diff) Equal(other *Diff) bool {
	if d.IsEmpty() != other.IsEmpty() {
		return false
	}
	if d.IsEmpty() {
		return true
	}
	if len(d.Entries) != len(other.Entries) {
		return false
	}
	om := make(map[string]Entry, len(other.Entries))
	for _, e := range other.Entries {
		om[e.Path] = e
	}
	for _, e := range d.Entries {
		oe, ok := om[e.Path]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(e.Old, oe.Old) || !reflect.DeepEqual(e.New, oe.New) {
			return false
		}
	}
	return true
}
