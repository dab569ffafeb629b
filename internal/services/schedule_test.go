package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps_HalfOpen(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 11, 2, h, m, 0, 0, time.UTC) }

	assert.True(t, overlaps(at(10, 0), at(10, 30), at(10, 15), at(11, 0)))
	assert.True(t, overlaps(at(10, 0), at(11, 0), at(10, 15), at(10, 30)))
	assert.False(t, overlaps(at(10, 0), at(10, 30), at(10, 30), at(11, 0)), "touching windows do not overlap")
	assert.False(t, overlaps(at(11, 0), at(11, 30), at(10, 0), at(11, 0)))
}

func TestSlotInstant_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	got, err := slotInstant("2026-11-02", "10:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 2, 13, 0, 0, 0, time.UTC), got.UTC())

	_, err = slotInstant("2026-11-02", "25:00", loc)
	assert.Error(t, err)
}

func TestFollowingSlot(t *testing.T) {
	next, ok := followingSlot("10:00", 30)
	assert.True(t, ok)
	assert.Equal(t, "10:30", next)

	next, ok = followingSlot("09:45", 30)
	assert.True(t, ok)
	assert.Equal(t, "10:15", next)

	_, ok = followingSlot("23:30", 30)
	assert.False(t, ok)

	_, ok = followingSlot("bogus", 30)
	assert.False(t, ok)
}

func TestErrorTaxonomy(t *testing.T) {
	wrapped := ErrSlotTaken.withf("slot %s", "s1")
	assert.ErrorIs(t, wrapped, ErrSlotTaken)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "slot_taken", CodeOf(wrapped))
	assert.Equal(t, ErrSlotTaken.Msg, MessageOf(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "internal", CodeOf(plain))

	up := upstream(plain)
	assert.ErrorIs(t, up, plain)
	assert.Equal(t, KindUpstreamFailure, KindOf(up))

	cd := &CooldownError{Remaining: 24*time.Minute + time.Second}
	assert.Equal(t, 25, cd.RemainingMinutes())
	assert.ErrorIs(t, cd, ErrCooldownActive)
	assert.Equal(t, KindConflict, KindOf(cd))
}
