// ABOUTME: Tests for generation timelines
// ABOUTME: Verifies ordering, as-of lookups and neighbour navigation

package toc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func buildTimeline(t *testing.T, dates ...time.Time) *Timeline {
	t.Helper()
	parent := &Entry{ObjectID: "motor.Basic", Category: ProductComponent}
	tl, err := newTimeline(parent, dates)
	require.NoError(t, err)
	return tl
}

func TestTimelineNavigation(t *testing.T) {
	tl := buildTimeline(t, day(2021, 1, 1), day(2020, 1, 1), day(2022, 1, 1))

	got := tl.EffectiveAt(day(2021, 6, 1))
	require.NotNil(t, got)
	assert.Equal(t, day(2021, 1, 1), got.ValidFrom)

	first := tl.EffectiveAt(day(2020, 1, 1))
	require.NotNil(t, first)
	next := tl.Next(first)
	require.NotNil(t, next)
	assert.Equal(t, day(2021, 1, 1), next.ValidFrom)

	prev := tl.Previous(next)
	require.NotNil(t, prev)
	assert.Same(t, first, prev)

	assert.Nil(t, tl.EffectiveAt(day(2019, 1, 1)))
	assert.Nil(t, tl.Previous(first))
	assert.Nil(t, tl.Next(tl.Latest()))
}

func TestTimelineIsDescending(t *testing.T) {
	tl := buildTimeline(t, day(2020, 1, 1), day(2022, 1, 1), day(2021, 1, 1))

	entries := tl.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, day(2022, 1, 1), entries[0].ValidFrom)
	assert.Equal(t, day(2021, 1, 1), entries[1].ValidFrom)
	assert.Equal(t, day(2020, 1, 1), entries[2].ValidFrom)
	assert.Same(t, entries[0], tl.Latest())
	assert.Equal(t, 3, tl.Len())
}

func TestTimelineNormalizesZones(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	tl := buildTimeline(t, time.Date(2020, 1, 1, 1, 0, 0, 0, cet))

	got := tl.Find(day(2020, 1, 1))
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.ValidFrom.Location())
	assert.Nil(t, tl.Find(day(2020, 1, 2)))
}

func TestTimelineRejectsDuplicates(t *testing.T) {
	parent := &Entry{ObjectID: "motor.Basic", Category: ProductComponent}
	cet := time.FixedZone("CET", 3600)

	_, err := newTimeline(parent, []time.Time{day(2020, 1, 1), time.Date(2020, 1, 1, 1, 0, 0, 0, cet)})
	assert.ErrorIs(t, err, ErrDuplicateValidFrom)
	assert.ErrorIs(t, err, ErrMalformedIndex)
}

func TestTimelineRejectsEmpty(t *testing.T) {
	parent := &Entry{ObjectID: "motor.Basic", Category: ProductComponent}
	_, err := newTimeline(parent, nil)
	assert.ErrorIs(t, err, ErrEmptyTimeline)
}

func TestNilTimeline(t *testing.T) {
	var tl *Timeline
	assert.Nil(t, tl.EffectiveAt(day(2020, 1, 1)))
	assert.Nil(t, tl.Latest())
	assert.Equal(t, 0, tl.Len())
	assert.Empty(t, tl.Entries())
}
