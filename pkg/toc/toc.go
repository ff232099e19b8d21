// ABOUTME: Immutable table of contents with its secondary indexes
// ABOUTME: Built once by a Builder and read without locks afterwards

package toc

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type kindVersion struct {
	kind    string
	version string
}

// pending is one Add call waiting for Build
type pending struct {
	entry       Entry
	generations []time.Time
}

// Builder collects entries and produces a TableOfContents. It is not safe
// for concurrent use.
type Builder struct {
	pending     []pending
	fingerprint string
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Add registers an entry. Product components must list the valid-from date
// of every generation; other categories must list none.
func (b *Builder) Add(e Entry, generations ...time.Time) *Builder {
	b.pending = append(b.pending, pending{entry: e, generations: slices.Clone(generations)})
	return b
}

// WithFingerprint records the digest of the source the entries came from
func (b *Builder) WithFingerprint(fp string) *Builder {
	b.fingerprint = fp
	return b
}

// Build validates every entry and indexes it. On failure no table of
// contents is returned.
func (b *Builder) Build() (*TableOfContents, error) {
	t := &TableOfContents{
		byID:          make(map[Category]map[string]*Entry, len(Categories)),
		byKind:        make(map[string][]*Entry),
		byKindVersion: make(map[kindVersion]*Entry),
		tablesByImpl:  make(map[string][]*Entry),
		enumContents:  make(map[string]*Entry),
		enumAdapters:  make(map[string][]*Entry),
		fingerprint:   b.fingerprint,
	}
	for _, c := range Categories {
		t.byID[c] = make(map[string]*Entry)
	}

	for _, p := range b.pending {
		if err := t.add(p); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// TableOfContents indexes entries by category and secondary keys
type TableOfContents struct {
	byID          map[Category]map[string]*Entry
	byKind        map[string][]*Entry // registration order
	byKindVersion map[kindVersion]*Entry
	tablesByImpl  map[string][]*Entry // registration order
	enumContents  map[string]*Entry   // by enum type
	enumAdapters  map[string][]*Entry // by enum type

	fingerprint    string
	generationSize int
}

func (t *TableOfContents) add(p pending) error {
	e := p.entry
	if !e.Category.Valid() {
		return malformed(e.Category, e.ObjectID, ErrUnknownCategory)
	}
	if _, dup := t.byID[e.Category][e.ObjectID]; dup {
		return malformed(e.Category, e.ObjectID, ErrDuplicateEntry)
	}

	entry := &e
	entry.Timeline = nil
	if entry.Category != ProductComponent && len(p.generations) > 0 {
		return malformed(entry.Category, entry.ObjectID, ErrUnexpectedGenerations)
	}

	switch entry.Category {
	case ProductComponent:
		kv := kindVersion{kind: entry.KindID, version: entry.VersionID}
		if _, dup := t.byKindVersion[kv]; dup {
			return malformed(entry.Category, entry.ObjectID,
				fmt.Errorf("%w: %s/%s", ErrDuplicateKindVersion, entry.KindID, entry.VersionID))
		}
		timeline, err := newTimeline(entry, p.generations)
		if err != nil {
			return err
		}
		if entry.ValidTo != nil {
			to := entry.ValidTo.UTC()
			entry.ValidTo = &to
		}
		entry.Timeline = timeline
		t.byKindVersion[kv] = entry
		t.byKind[entry.KindID] = append(t.byKind[entry.KindID], entry)
		t.generationSize += timeline.Len()
	case Table:
		if entry.ImplementationKey != "" {
			t.tablesByImpl[entry.ImplementationKey] = append(t.tablesByImpl[entry.ImplementationKey], entry)
		}
	case EnumContent:
		if entry.EnumType == "" {
			entry.EnumType = entry.ObjectID
		}
		if _, dup := t.enumContents[entry.EnumType]; dup {
			return malformed(entry.Category, entry.ObjectID,
				fmt.Errorf("%w: enum type %s", ErrDuplicateEntry, entry.EnumType))
		}
		t.enumContents[entry.EnumType] = entry
	case EnumAdapter:
		if entry.EnumType == "" {
			entry.EnumType = entry.ObjectID
		}
		t.enumAdapters[entry.EnumType] = append(t.enumAdapters[entry.EnumType], entry)
	}

	t.byID[entry.Category][entry.ObjectID] = entry
	return nil
}

// Fingerprint returns the digest of the manifest this table was loaded
// from, or "" for tables built in code
func (t *TableOfContents) Fingerprint() string {
	return t.fingerprint
}

// FindByID returns the entry with id in category, or nil
func (t *TableOfContents) FindByID(cat Category, id string) *Entry {
	return t.byID[cat][id]
}

// FindProductComponent returns the product component entry with id, or nil
func (t *TableOfContents) FindProductComponent(id string) *Entry {
	return t.byID[ProductComponent][id]
}

// FindByKindVersion returns the product component of kind at version, or nil
func (t *TableOfContents) FindByKindVersion(kind, version string) *Entry {
	return t.byKindVersion[kindVersion{kind: kind, version: version}]
}

// FindAllByKind returns every version of kind in registration order
func (t *TableOfContents) FindAllByKind(kind string) []*Entry {
	return slices.Clone(t.byKind[kind])
}

// FindTableByImplementationKey returns the first table registered for key
func (t *TableOfContents) FindTableByImplementationKey(key string) *Entry {
	if tables := t.tablesByImpl[key]; len(tables) > 0 {
		return tables[0]
	}
	return nil
}

// FindAllTablesByImplementationKey returns every table registered for key
func (t *TableOfContents) FindAllTablesByImplementationKey(key string) []*Entry {
	return slices.Clone(t.tablesByImpl[key])
}

// FindEnumContentByName returns the enum content for an enum type, or nil
func (t *TableOfContents) FindEnumContentByName(enumType string) *Entry {
	return t.enumContents[enumType]
}

// FindEnumAdapters returns the adapters registered for an enum type. An
// empty enumType returns every adapter sorted by id.
func (t *TableOfContents) FindEnumAdapters(enumType string) []*Entry {
	if enumType == "" {
		return t.Entries(EnumAdapter)
	}
	return slices.Clone(t.enumAdapters[enumType])
}

// FindTestCase returns the test case named name, or nil
func (t *TableOfContents) FindTestCase(name string) *Entry {
	return t.byID[TestCase][name]
}

// FindTestCases returns the test cases whose name starts with prefix,
// sorted by name
func (t *TableOfContents) FindTestCases(prefix string) []*Entry {
	var out []*Entry
	for _, e := range t.Entries(TestCase) {
		if strings.HasPrefix(e.ObjectID, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// FindModelType returns the model type named name, or nil
func (t *TableOfContents) FindModelType(name string) *Entry {
	return t.byID[ModelType][name]
}

// Entries returns every entry of cat sorted by object id
func (t *TableOfContents) Entries(cat Category) []*Entry {
	entries := make([]*Entry, 0, len(t.byID[cat]))
	for _, e := range t.byID[cat] {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *Entry) int {
		return strings.Compare(a.ObjectID, b.ObjectID)
	})
	return entries
}

// IDs returns every object id of cat, sorted
func (t *TableOfContents) IDs(cat Category) []string {
	ids := make([]string, 0, len(t.byID[cat]))
	for id := range t.byID[cat] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Kinds returns every product component kind, sorted
func (t *TableOfContents) Kinds() []string {
	kinds := make([]string, 0, len(t.byKind))
	for k := range t.byKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Count returns the number of entries in cat
func (t *TableOfContents) Count(cat Category) int {
	return len(t.byID[cat])
}

// GenerationTotal returns the number of generations across all product components
func (t *TableOfContents) GenerationTotal() int {
	return t.generationSize
}

// productTimeline returns the timeline of id. A product component without
// generations is a malformed index; a missing id is (nil, nil).
func (t *TableOfContents) productTimeline(id string) (*Timeline, error) {
	e := t.byID[ProductComponent][id]
	if e == nil {
		return nil, nil
	}
	if e.Timeline.Len() == 0 {
		return nil, malformed(ProductComponent, id, ErrEmptyTimeline)
	}
	return e.Timeline, nil
}

// EntryEffectiveAt returns the generation of id effective at date. Both
// results are nil when id is unknown or date precedes the first generation.
func (t *TableOfContents) EntryEffectiveAt(id string, date time.Time) (*GenerationEntry, error) {
	tl, err := t.productTimeline(id)
	if tl == nil {
		return nil, err
	}
	return tl.EffectiveAt(date), nil
}

// NextGenerationAfter returns the generation following ge, or nil
func (t *TableOfContents) NextGenerationAfter(ge *GenerationEntry) *GenerationEntry {
	if ge == nil || ge.Parent == nil {
		return nil
	}
	return ge.Parent.Timeline.Next(ge)
}

// PreviousGenerationBefore returns the generation preceding ge, or nil
func (t *TableOfContents) PreviousGenerationBefore(ge *GenerationEntry) *GenerationEntry {
	if ge == nil || ge.Parent == nil {
		return nil
	}
	return ge.Parent.Timeline.Previous(ge)
}

// LatestGeneration returns the newest generation of id
func (t *TableOfContents) LatestGeneration(id string) (*GenerationEntry, error) {
	tl, err := t.productTimeline(id)
	if tl == nil {
		return nil, err
	}
	return tl.Latest(), nil
}

// GenerationCount returns the number of generations of id; 0 when unknown
func (t *TableOfContents) GenerationCount(id string) int {
	if e := t.byID[ProductComponent][id]; e != nil {
		return e.Timeline.Len()
	}
	return 0
}
