package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

func TestKey_Format(t *testing.T) {
	assert.Equal(t, "10:30", Key(model.Seat{RowNumber: 10, SeatNumber: 30}))
	assert.Equal(t, "1:30", KeyOf(1, 30))
	assert.Equal(t, "1:3", KeyOf(1, 3))
}

func TestKey_NoCollisions(t *testing.T) {
	seen := map[string]model.Seat{}
	for r := 0; r <= 40; r++ {
		for s := 0; s <= 40; s++ {
			seat := model.Seat{RowNumber: r, SeatNumber: s}
			k := Key(seat)
			assert.Equal(t, k, Key(seat), "key must be deterministic")
			if prev, ok := seen[k]; ok {
				t.Fatalf("key %q shared by %v and %v", k, prev, seat)
			}
			seen[k] = seat
		}
	}
}

func TestParseKey(t *testing.T) {
	seat, err := ParseKey("12:7")
	require.NoError(t, err)
	assert.Equal(t, model.Seat{RowNumber: 12, SeatNumber: 7}, seat)

	for _, bad := range []string{"", "12", "a:1", "1:b", "1-2"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildBookedSet_Dedup(t *testing.T) {
	set := BuildBookedSet([]model.Seat{
		{RowNumber: 1, SeatNumber: 1},
		{RowNumber: 1, SeatNumber: 1},
		{RowNumber: 1, SeatNumber: 1},
	})
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Has("1:1"))
	assert.False(t, set.Has("1:2"))
}

func TestBuildBookedSet_Empty(t *testing.T) {
	assert.Zero(t, BuildBookedSet(nil).Len())
	var nilSet KeySet
	assert.False(t, nilSet.Has("1:1"))
}
