package tickets

import (
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

// Catalog resolves movie and cinema ids to display data.  Missing entries
// fall back to numeric labels.
type Catalog struct {
	Movies  map[int]string
	Cinemas map[int]model.Cinema
}

// NewCatalog indexes the given lists.
func NewCatalog(movies []model.Movie, cinemas []model.Cinema) Catalog {
	c := Catalog{
		Movies:  make(map[int]string, len(movies)),
		Cinemas: make(map[int]model.Cinema, len(cinemas)),
	}
	for _, m := range movies {
		c.Movies[m.ID] = m.Title
	}
	for _, ci := range cinemas {
		c.Cinemas[ci.ID] = ci
	}
	return c
}

// Card is the rendered form of a ticket.
type Card struct {
	BookingID       string       `json:"bookingId"`
	ShortID         string       `json:"shortId"`
	MovieSessionID  int          `json:"movieSessionId"`
	MovieLabel      string       `json:"movie"`
	CinemaLabel     string       `json:"cinema"`
	CinemaAddress   string       `json:"cinemaAddress,omitempty"`
	StartTime       string       `json:"startTime,omitempty"`
	Seats           []model.Seat `json:"seats"`
	SeatsLabel      string       `json:"seatsLabel"`
	IsPaid          bool         `json:"isPaid"`
	IsExpiredUnpaid bool         `json:"isExpiredUnpaid"`
	RemainingMs     *int64       `json:"remainingMs,omitempty"`
	Remaining       string       `json:"remaining,omitempty"`
}

// List is the ticket page payload.
type List struct {
	PaymentSeconds int    `json:"paymentSeconds"`
	Unpaid         []Card `json:"unpaid"`
	Future         []Card `json:"future"`
	Past           []Card `json:"past"`
}

// Render turns buckets into cards.
func Render(b Buckets, cat Catalog, paymentSeconds int) List {
	return List{
		PaymentSeconds: paymentSeconds,
		Unpaid:         renderAll(b.Unpaid, cat, paymentSeconds),
		Future:         renderAll(b.Future, cat, paymentSeconds),
		Past:           renderAll(b.Past, cat, paymentSeconds),
	}
}

func renderAll(vms []ViewModel, cat Catalog, paymentSeconds int) []Card {
	cards := make([]Card, 0, len(vms))
	for _, vm := range vms {
		cards = append(cards, RenderCard(vm, cat, paymentSeconds))
	}
	return cards
}

// RenderCard builds the card of one ticket.
func RenderCard(vm ViewModel, cat Catalog, paymentSeconds int) Card {
	b := vm.Booking
	card := Card{
		BookingID:       b.ID,
		ShortID:         ShortID(b.ID),
		MovieSessionID:  b.MovieSessionID,
		MovieLabel:      "Movie #—",
		CinemaLabel:     "#—",
		Seats:           b.Seats,
		SeatsLabel:      SeatsLabel(b.Seats),
		IsPaid:          b.IsPaid,
		IsExpiredUnpaid: vm.IsExpiredUnpaid,
		RemainingMs:     vm.RemainingMs,
	}
	if card.Seats == nil {
		card.Seats = []model.Seat{}
	}
	if s := vm.Session; s != nil {
		card.StartTime = s.StartTime
		card.MovieLabel = fmt.Sprintf("Movie #%d", s.MovieID)
		if title, ok := cat.Movies[s.MovieID]; ok && title != "" {
			card.MovieLabel = title
		}
		card.CinemaLabel = fmt.Sprintf("#%d", s.CinemaID)
		if ci, ok := cat.Cinemas[s.CinemaID]; ok {
			card.CinemaLabel = ci.Name
			card.CinemaAddress = ci.Address
		}
	}
	if !b.IsPaid && !vm.IsExpiredUnpaid {
		ms := int64(paymentSeconds) * 1000
		if vm.RemainingMs != nil {
			ms = *vm.RemainingMs
		}
		card.Remaining = FormatRemaining(ms)
	}
	return card
}

// ShortID returns the first 8 characters of a booking id.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// SeatsLabel renders seats as "row-seat" joined by commas.
func SeatsLabel(seats []model.Seat) string {
	parts := make([]string, 0, len(seats))
	for _, s := range seats {
		parts = append(parts, fmt.Sprintf("%d-%d", s.RowNumber, s.SeatNumber))
	}
	return strings.Join(parts, ", ")
}

// FormatRemaining renders a countdown as m:ss, never below 0:00.
func FormatRemaining(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := (ms + 999) / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
