// Package upstreamtest runs an in-memory booking API for tests.
package upstreamtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

// Password accepted for every seeded user.
const Password = "Secret123"

// Server is a fake booking API.  PaymentSeconds and Now must be set before
// the first request.
type Server struct {
	*httptest.Server

	PaymentSeconds int
	Now            func() time.Time

	mu       sync.Mutex
	users    map[string]string // username -> token
	movies   []model.Movie
	cinemas  []model.Cinema
	sessions map[int]*model.MovieSessionDetails
	bookings map[string][]model.Booking // token -> bookings
	nextID   int

	calls sync.Map // "METHOD path" -> *atomic.Int64
}

// New starts a server seeded with one user, one movie, one cinema and
// session 42 (2 rows by 3 seats, seat 1:1 booked).
func New() *Server {
	s := &Server{
		PaymentSeconds: 120,
		Now:            time.Now,
		users:          map[string]string{"moviegoer": "tok-moviegoer"},
		movies:         []model.Movie{{ID: 7, Title: "Arrival", Year: 2016, LengthMinutes: 116}},
		cinemas:        []model.Cinema{{ID: 3, Name: "Odeon", Address: "1 Main St"}},
		sessions:       map[int]*model.MovieSessionDetails{},
		bookings:       map[string][]model.Booking{},
	}
	s.AddSession(model.MovieSessionDetails{
		MovieSession: model.MovieSession{ID: 42, MovieID: 7, CinemaID: 3, StartTime: time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)},
		Seats:        model.SeatLayout{Rows: 2, SeatsPerRow: 3},
		BookedSeats:  []model.Seat{{RowNumber: 1, SeatNumber: 1}},
	})
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// AddSession adds or replaces a session.
func (s *Server) AddSession(d model.MovieSessionDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := d
	cp.BookedSeats = append([]model.Seat(nil), d.BookedSeats...)
	s.sessions[d.ID] = &cp
}

// BookSeat marks a seat as taken by someone else.
func (s *Server) BookSeat(sessionID int, seat model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.sessions[sessionID]
	d.BookedSeats = append(d.BookedSeats, seat)
}

// SetBookings replaces the bookings owned by token.
func (s *Server) SetBookings(token string, list []model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[token] = append([]model.Booking(nil), list...)
}

// Bookings returns the bookings owned by token.
func (s *Server) Bookings(token string) []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Booking(nil), s.bookings[token]...)
}

// Calls returns how many times "METHOD path" was requested.
func (s *Server) Calls(method, path string) int {
	v, ok := s.calls.Load(method + " " + path)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int64).Load())
}

func (s *Server) count(r *http.Request) {
	v, _ := s.calls.LoadOrStore(r.Method+" "+r.URL.Path, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/login":
		s.login(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/register":
		s.register(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/movies":
		s.mu.Lock()
		writeJSON(w, http.StatusOK, s.movies)
		s.mu.Unlock()
	case r.Method == http.MethodGet && r.URL.Path == "/cinemas":
		s.mu.Lock()
		writeJSON(w, http.StatusOK, s.cinemas)
		s.mu.Unlock()
	case r.Method == http.MethodGet && r.URL.Path == "/settings":
		writeJSON(w, http.StatusOK, model.Settings{BookingPaymentTimeSeconds: s.PaymentSeconds})
	case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "sessions":
		s.sessionList(w, parts[0], parts[1])
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "movieSessions":
		s.sessionDetails(w, parts[1])
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "movieSessions" && parts[2] == "bookings":
		s.book(w, r, parts[1])
	case r.Method == http.MethodGet && r.URL.Path == "/me/bookings":
		tok, ok := s.auth(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.Bookings(tok))
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "bookings" && parts[2] == "payments":
		s.pay(w, r, parts[1])
	default:
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Message: "not found"})
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var p model.AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Message: "bad body"})
		return
	}
	s.mu.Lock()
	tok, ok := s.users[p.Username]
	s.mu.Unlock()
	if !ok || p.Password != Password {
		writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Message: "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Token: tok})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var p model.AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Message: "bad body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[p.Username]; taken {
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Message: "username taken"})
		return
	}
	tok := "tok-" + p.Username
	s.users[p.Username] = tok
	writeJSON(w, http.StatusCreated, model.TokenResponse{Token: tok})
}

func (s *Server) auth(w http.ResponseWriter, r *http.Request) (string, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.users {
		if t == tok && tok != "" {
			return tok, true
		}
	}
	writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Message: "unauthorized"})
	return "", false
}

func (s *Server) sessionList(w http.ResponseWriter, kind, rawID string) {
	id, _ := strconv.Atoi(rawID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.MovieSession{}
	for _, d := range s.sessions {
		if (kind == "movies" && d.MovieID == id) || (kind == "cinemas" && d.CinemaID == id) {
			out = append(out, d.MovieSession)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sessionDetails(w http.ResponseWriter, rawID string) {
	id, _ := strconv.Atoi(rawID)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.sessions[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Message: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) book(w http.ResponseWriter, r *http.Request, rawID string) {
	tok, ok := s.auth(w, r)
	if !ok {
		return
	}
	var body struct {
		Seats []model.Seat `json:"seats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Seats) == 0 {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Message: "no seats"})
		return
	}
	id, _ := strconv.Atoi(rawID)

	s.mu.Lock()
	defer s.mu.Unlock()
	d, found := s.sessions[id]
	if !found {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Message: "session not found"})
		return
	}
	taken := map[model.Seat]bool{}
	for _, b := range d.BookedSeats {
		taken[b] = true
	}
	for _, seat := range body.Seats {
		if taken[seat] {
			writeJSON(w, http.StatusConflict, model.ErrorResponse{Message: "seat already booked"})
			return
		}
	}
	d.BookedSeats = append(d.BookedSeats, body.Seats...)
	s.nextID++
	bookingID := fmt.Sprintf("00000000-0000-4000-8000-%012d", s.nextID)
	s.bookings[tok] = append(s.bookings[tok], model.Booking{
		ID:             bookingID,
		UserID:         1,
		MovieSessionID: id,
		SessionID:      id,
		BookedAt:       s.Now().UTC().Format(time.RFC3339Nano),
		Seats:          body.Seats,
	})
	writeJSON(w, http.StatusCreated, model.BookingCreated{BookingID: bookingID})
}

func (s *Server) pay(w http.ResponseWriter, r *http.Request, bookingID string) {
	tok, ok := s.auth(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.bookings[tok]
	for i := range list {
		if list[i].ID == bookingID {
			list[i].IsPaid = true
			writeJSON(w, http.StatusOK, model.PaymentResult{Message: "Booking paid"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, model.ErrorResponse{Message: "booking not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
