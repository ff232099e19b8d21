// ABOUTME: Tests for table of contents construction and finders
// ABOUTME: Covers validation failures and order-independent indexing

package toc

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addCall struct {
	entry       Entry
	generations []time.Time
}

func sampleCalls() []addCall {
	return []addCall{
		{Entry{ObjectID: "motor.Basic 2020", Category: ProductComponent, KindID: "motor.Basic", VersionID: "2020",
			ImplementationKey: "motor.Product"}, []time.Time{day(2020, 1, 1), day(2021, 1, 1)}},
		{Entry{ObjectID: "motor.Basic 2022", Category: ProductComponent, KindID: "motor.Basic", VersionID: "2022",
			ImplementationKey: "motor.Product"}, []time.Time{day(2022, 1, 1)}},
		{Entry{ObjectID: "home.Plus", Category: ProductComponent, KindID: "home.Plus", VersionID: "1"},
			[]time.Time{day(2019, 1, 1)}},
		{Entry{ObjectID: "motor.RateTable", Category: Table, ImplementationKey: "motor.Rates"}, nil},
		{Entry{ObjectID: "motor.RateTable2", Category: Table, ImplementationKey: "motor.Rates"}, nil},
		{Entry{ObjectID: "motor.Colors", Category: EnumContent}, nil},
		{Entry{ObjectID: "motor.ColorAdapter", Category: EnumAdapter, EnumType: "motor.Colors"}, nil},
		{Entry{ObjectID: "tests.motor.premium", Category: TestCase}, nil},
		{Entry{ObjectID: "tests.home.premium", Category: TestCase}, nil},
		{Entry{ObjectID: "motor.Policy", Category: ModelType}, nil},
	}
}

func build(t *testing.T, calls []addCall) *TableOfContents {
	t.Helper()
	b := NewBuilder()
	for _, c := range calls {
		b.Add(c.entry, c.generations...)
	}
	tc, err := b.Build()
	require.NoError(t, err)
	return tc
}

func TestFinders(t *testing.T) {
	tc := build(t, sampleCalls())

	pc := tc.FindProductComponent("motor.Basic 2020")
	require.NotNil(t, pc)
	assert.Equal(t, 2, pc.Timeline.Len())
	assert.Same(t, pc, tc.FindByKindVersion("motor.Basic", "2020"))
	assert.Same(t, pc, tc.FindByID(ProductComponent, "motor.Basic 2020"))
	assert.Nil(t, tc.FindByKindVersion("motor.Basic", "1999"))

	versions := tc.FindAllByKind("motor.Basic")
	require.Len(t, versions, 2)
	assert.Equal(t, "2020", versions[0].VersionID)
	assert.Equal(t, "2022", versions[1].VersionID)

	table := tc.FindTableByImplementationKey("motor.Rates")
	require.NotNil(t, table)
	assert.Equal(t, "motor.RateTable", table.ObjectID)
	assert.Len(t, tc.FindAllTablesByImplementationKey("motor.Rates"), 2)

	enum := tc.FindEnumContentByName("motor.Colors")
	require.NotNil(t, enum)
	assert.Equal(t, "motor.Colors", enum.EnumType)

	adapters := tc.FindEnumAdapters("motor.Colors")
	require.Len(t, adapters, 1)
	assert.Equal(t, "motor.ColorAdapter", adapters[0].ObjectID)
	assert.Len(t, tc.FindEnumAdapters(""), 1)

	assert.NotNil(t, tc.FindTestCase("tests.home.premium"))
	assert.Len(t, tc.FindTestCases("tests.motor"), 1)
	assert.NotNil(t, tc.FindModelType("motor.Policy"))
	assert.Nil(t, tc.FindModelType("motor.Missing"))

	assert.Equal(t, []string{"home.Plus", "motor.Basic"}, tc.Kinds())
	assert.Equal(t, []string{"home.Plus", "motor.Basic 2020", "motor.Basic 2022"}, tc.IDs(ProductComponent))
	assert.Equal(t, 2, tc.Count(Table))
	assert.Equal(t, 4, tc.GenerationTotal())
	assert.Empty(t, tc.Fingerprint())
}

func TestGenerationNavigation(t *testing.T) {
	tc := build(t, sampleCalls())

	ge, err := tc.EntryEffectiveAt("motor.Basic 2020", day(2020, 6, 1))
	require.NoError(t, err)
	require.NotNil(t, ge)
	assert.Equal(t, day(2020, 1, 1), ge.ValidFrom)
	assert.Equal(t, "motor.Basic 2020", ge.ObjectID())

	next := tc.NextGenerationAfter(ge)
	require.NotNil(t, next)
	assert.Equal(t, day(2021, 1, 1), next.ValidFrom)
	assert.Same(t, ge, tc.PreviousGenerationBefore(next))
	assert.Nil(t, tc.NextGenerationAfter(next))

	latest, err := tc.LatestGeneration("motor.Basic 2020")
	require.NoError(t, err)
	assert.Same(t, next, latest)

	assert.Equal(t, 2, tc.GenerationCount("motor.Basic 2020"))
	assert.Equal(t, 0, tc.GenerationCount("unknown"))

	missing, err := tc.EntryEffectiveAt("unknown", day(2020, 1, 1))
	assert.NoError(t, err)
	assert.Nil(t, missing)

	before, err := tc.EntryEffectiveAt("motor.Basic 2020", day(2019, 1, 1))
	assert.NoError(t, err)
	assert.Nil(t, before)
}

func TestBuildRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		calls []addCall
		want  error
	}{
		{
			name: "duplicate id",
			calls: []addCall{
				{Entry{ObjectID: "t", Category: Table}, nil},
				{Entry{ObjectID: "t", Category: Table}, nil},
			},
			want: ErrDuplicateEntry,
		},
		{
			name: "duplicate kind version",
			calls: []addCall{
				{Entry{ObjectID: "a", Category: ProductComponent, KindID: "k", VersionID: "1"}, []time.Time{day(2020, 1, 1)}},
				{Entry{ObjectID: "b", Category: ProductComponent, KindID: "k", VersionID: "1"}, []time.Time{day(2020, 1, 1)}},
			},
			want: ErrDuplicateKindVersion,
		},
		{
			name: "empty timeline",
			calls: []addCall{
				{Entry{ObjectID: "a", Category: ProductComponent, KindID: "k", VersionID: "1"}, nil},
			},
			want: ErrEmptyTimeline,
		},
		{
			name: "duplicate valid from",
			calls: []addCall{
				{Entry{ObjectID: "a", Category: ProductComponent}, []time.Time{day(2020, 1, 1), day(2020, 1, 1)}},
			},
			want: ErrDuplicateValidFrom,
		},
		{
			name:  "unknown category",
			calls: []addCall{{Entry{ObjectID: "a", Category: Category(42)}, nil}},
			want:  ErrUnknownCategory,
		},
		{
			name:  "generations on a table",
			calls: []addCall{{Entry{ObjectID: "a", Category: Table}, []time.Time{day(2020, 1, 1)}}},
			want:  ErrUnexpectedGenerations,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			for _, c := range tt.calls {
				b.Add(c.entry, c.generations...)
			}
			tc, err := b.Build()
			assert.Nil(t, tc)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrMalformedIndex)

			var mie *MalformedIndexError
			assert.True(t, errors.As(err, &mie))
		})
	}
}

func TestParseCategory(t *testing.T) {
	cat, err := ParseCategory("enumcontent")
	require.NoError(t, err)
	assert.Equal(t, EnumContent, cat)

	_, err = ParseCategory("Policy")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.ErrorIs(t, err, ErrMalformedIndex)
}

func TestConstructionIsIdempotentAndOrderIndependent(t *testing.T) {
	calls := sampleCalls()
	first := build(t, calls)
	again := build(t, calls)

	shuffled := append([]addCall(nil), calls...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	// reversed generation input must not change timeline order
	for i := range shuffled {
		g := shuffled[i].generations
		rev := make([]time.Time, len(g))
		for j := range g {
			rev[len(g)-1-j] = g[j]
		}
		shuffled[i].generations = rev
	}
	mixed := build(t, shuffled)

	for _, tc := range []*TableOfContents{again, mixed} {
		for _, cat := range Categories {
			assert.Equal(t, first.IDs(cat), tc.IDs(cat))
		}
		assert.Equal(t, first.Kinds(), tc.Kinds())
		for _, id := range first.IDs(ProductComponent) {
			want := first.FindProductComponent(id).Timeline.Entries()
			got := tc.FindProductComponent(id).Timeline.Entries()
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].ValidFrom, got[i].ValidFrom)
			}
			a, _ := first.EntryEffectiveAt(id, day(2021, 3, 1))
			b, _ := tc.EntryEffectiveAt(id, day(2021, 3, 1))
			if a == nil {
				assert.Nil(t, b)
			} else {
				require.NotNil(t, b)
				assert.Equal(t, a.ValidFrom, b.ValidFrom)
			}
		}
		assert.Equal(t, first.FindEnumContentByName("motor.Colors").ObjectID,
			tc.FindEnumContentByName("motor.Colors").ObjectID)
	}
}
