package seatmap

import "github.com/iliyamo/cinema-booking-gateway/internal/model"

// CellState is the render state of one seat in the grid.
type CellState string

const (
	CellUnavailable CellState = "unavailable"
	CellSelected    CellState = "selected"
	CellAvailable   CellState = "available"
)

// StateOf resolves the state of key.  A key found in both sets renders as
// unavailable: booked always wins over a stale selection.
func StateOf(key string, booked, selected KeySet) CellState {
	switch {
	case booked.Has(key):
		return CellUnavailable
	case selected.Has(key):
		return CellSelected
	default:
		return CellAvailable
	}
}

// Cell is one seat of the rendered grid.
type Cell struct {
	model.Seat
	Key      string    `json:"key"`
	State    CellState `json:"state"`
	Disabled bool      `json:"disabled"`
}

// Row is one row of the rendered grid.
type Row struct {
	RowNumber int    `json:"rowNumber"`
	Cells     []Cell `json:"cells"`
}

// BuildGrid lays out rows 1..Rows and seats 1..SeatsPerRow.  Cells are
// disabled for guests and for booked seats.
func BuildGrid(layout model.SeatLayout, booked, selected KeySet, authed bool) ([]Row, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	rows := make([]Row, 0, layout.Rows)
	for r := 1; r <= layout.Rows; r++ {
		row := Row{RowNumber: r, Cells: make([]Cell, 0, layout.SeatsPerRow)}
		for n := 1; n <= layout.SeatsPerRow; n++ {
			key := KeyOf(r, n)
			state := StateOf(key, booked, selected)
			row.Cells = append(row.Cells, Cell{
				Seat:     model.Seat{RowNumber: r, SeatNumber: n},
				Key:      key,
				State:    state,
				Disabled: !authed || state == CellUnavailable,
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}
