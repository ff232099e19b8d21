// ABOUTME: Generation timeline of a product component
// ABOUTME: Keeps generations sorted descending and answers as-of and neighbour lookups

package toc

import (
	"fmt"
	"slices"
	"time"

	"github.com/faktorips/faktorips.base-sub009/pkg/rangetree"
)

// Timeline holds the generations of one product component, newest first.
// Lookups go through a range tree keyed by valid-from date.
type Timeline struct {
	entries []*GenerationEntry // descending by ValidFrom
	index   *rangetree.Tree[time.Time, int]
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

// newTimeline builds the timeline for parent. Dates are normalized to UTC.
func newTimeline(parent *Entry, validFrom []time.Time) (*Timeline, error) {
	if len(validFrom) == 0 {
		return nil, malformed(parent.Category, parent.ObjectID, ErrEmptyTimeline)
	}

	entries := make([]*GenerationEntry, 0, len(validFrom))
	for _, d := range validFrom {
		entries = append(entries, &GenerationEntry{Parent: parent, ValidFrom: d.UTC()})
	}
	slices.SortFunc(entries, func(a, b *GenerationEntry) int {
		return b.ValidFrom.Compare(a.ValidFrom)
	})

	positions := make(map[time.Time]int, len(entries))
	for i, e := range entries {
		if i > 0 && e.ValidFrom.Equal(entries[i-1].ValidFrom) {
			return nil, malformed(parent.Category, parent.ObjectID,
				fmt.Errorf("%w: %s", ErrDuplicateValidFrom, e.ValidFrom.Format(time.RFC3339)))
		}
		positions[e.ValidFrom] = i
	}

	return &Timeline{
		entries: entries,
		index:   rangetree.New(positions, compareTime),
	}, nil
}

func (t *Timeline) lookup(d time.Time, mode rangetree.Mode) *GenerationEntry {
	if t == nil {
		return nil
	}
	if i, ok := t.index.Get(d.UTC(), mode); ok {
		return t.entries[i]
	}
	return nil
}

// EffectiveAt returns the latest generation with ValidFrom <= d, or nil
func (t *Timeline) EffectiveAt(d time.Time) *GenerationEntry {
	return t.lookup(d, rangetree.LowerBoundEqual)
}

// Next returns the generation immediately after e, or nil if e is the latest
func (t *Timeline) Next(e *GenerationEntry) *GenerationEntry {
	return t.lookup(e.ValidFrom, rangetree.UpperBound)
}

// Previous returns the generation immediately before e, or nil if e is the first
func (t *Timeline) Previous(e *GenerationEntry) *GenerationEntry {
	return t.lookup(e.ValidFrom, rangetree.LowerBound)
}

// Find returns the generation starting exactly at validFrom
func (t *Timeline) Find(validFrom time.Time) *GenerationEntry {
	e := t.lookup(validFrom, rangetree.LowerBoundEqual)
	if e == nil || !e.ValidFrom.Equal(validFrom) {
		return nil
	}
	return e
}

// Latest returns the newest generation
func (t *Timeline) Latest() *GenerationEntry {
	if t == nil || len(t.entries) == 0 {
		return nil
	}
	return t.entries[0]
}

// Len returns the number of generations
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the generations newest first
func (t *Timeline) Entries() []*GenerationEntry {
	if t == nil {
		return nil
	}
	return slices.Clone(t.entries)
}
