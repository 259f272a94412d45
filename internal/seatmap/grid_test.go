package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

func TestStateOf_BookedWins(t *testing.T) {
	booked := KeySet{"1:1": {}}
	selected := KeySet{"1:1": {}, "1:2": {}}

	assert.Equal(t, CellUnavailable, StateOf("1:1", booked, selected))
	assert.Equal(t, CellSelected, StateOf("1:2", booked, selected))
	assert.Equal(t, CellAvailable, StateOf("1:3", booked, selected))
}

func TestBuildGrid(t *testing.T) {
	layout := model.SeatLayout{Rows: 2, SeatsPerRow: 3}
	booked := BuildBookedSet([]model.Seat{{RowNumber: 1, SeatNumber: 1}})
	selected := KeySet{"2:3": {}}

	rows, err := BuildGrid(layout, booked, selected, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[0].Cells, 3)

	assert.Equal(t, 1, rows[0].RowNumber)
	assert.Equal(t, CellUnavailable, rows[0].Cells[0].State)
	assert.True(t, rows[0].Cells[0].Disabled)
	assert.Equal(t, CellAvailable, rows[0].Cells[1].State)
	assert.False(t, rows[0].Cells[1].Disabled)
	assert.Equal(t, "2:3", rows[1].Cells[2].Key)
	assert.Equal(t, CellSelected, rows[1].Cells[2].State)
}

func TestBuildGrid_GuestCellsDisabled(t *testing.T) {
	rows, err := BuildGrid(model.SeatLayout{Rows: 1, SeatsPerRow: 2}, nil, nil, false)
	require.NoError(t, err)
	for _, c := range rows[0].Cells {
		assert.True(t, c.Disabled)
		assert.Equal(t, CellAvailable, c.State)
	}
}

func TestBuildGrid_RejectsNegativeDimensions(t *testing.T) {
	_, err := BuildGrid(model.SeatLayout{Rows: -1, SeatsPerRow: 3}, nil, nil, true)
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestBuildGrid_EmptyLayout(t *testing.T) {
	rows, err := BuildGrid(model.SeatLayout{}, nil, nil, true)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
