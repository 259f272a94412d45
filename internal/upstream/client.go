// Package upstream is the HTTP client of the booking API the gateway fronts.
// Every call is a single request; caching and de-duplication live in
// querycache.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

// Client talks to the booking API.  It is safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New returns a client for baseURL.  timeout bounds every request; zero
// means 10 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, p model.AuthPayload) (model.TokenResponse, error) {
	var out model.TokenResponse
	err := c.do(ctx, http.MethodPost, "/login", "", p, &out)
	return out, err
}

// Register creates an account and returns its bearer token.
func (c *Client) Register(ctx context.Context, p model.AuthPayload) (model.TokenResponse, error) {
	var out model.TokenResponse
	err := c.do(ctx, http.MethodPost, "/register", "", p, &out)
	return out, err
}

// Movies lists all movies.
func (c *Client) Movies(ctx context.Context) ([]model.Movie, error) {
	var out []model.Movie
	err := c.do(ctx, http.MethodGet, "/movies", "", nil, &out)
	return out, err
}

// Movie finds one movie.  The API has no single-movie endpoint, so the
// list is scanned.
func (c *Client) Movie(ctx context.Context, id int) (model.Movie, error) {
	movies, err := c.Movies(ctx)
	if err != nil {
		return model.Movie{}, err
	}
	for _, m := range movies {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Movie{}, &APIError{Status: http.StatusNotFound, Method: http.MethodGet, Path: fmt.Sprintf("/movies/%d", id), Message: "movie not found"}
}

// Cinemas lists all cinemas.
func (c *Client) Cinemas(ctx context.Context) ([]model.Cinema, error) {
	var out []model.Cinema
	err := c.do(ctx, http.MethodGet, "/cinemas", "", nil, &out)
	return out, err
}

// MovieSessions lists the showtimes of a movie.
func (c *Client) MovieSessions(ctx context.Context, movieID int) ([]model.MovieSession, error) {
	var out []model.MovieSession
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/movies/%d/sessions", movieID), "", nil, &out)
	return out, err
}

// CinemaSessions lists the showtimes of a cinema.
func (c *Client) CinemaSessions(ctx context.Context, cinemaID int) ([]model.MovieSession, error) {
	var out []model.MovieSession
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/cinemas/%d/sessions", cinemaID), "", nil, &out)
	return out, err
}

// MovieSessionDetails returns a showtime with its seat grid and booked seats.
func (c *Client) MovieSessionDetails(ctx context.Context, id int) (model.MovieSessionDetails, error) {
	var out model.MovieSessionDetails
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/movieSessions/%d", id), "", nil, &out)
	return out, err
}

// BookSeats reserves seats for a session in one atomic call.
func (c *Client) BookSeats(ctx context.Context, token string, movieSessionID int, seats []model.Seat) (model.BookingCreated, error) {
	var out model.BookingCreated
	body := struct {
		Seats []model.Seat `json:"seats"`
	}{Seats: seats}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/movieSessions/%d/bookings", movieSessionID), token, body, &out)
	return out, err
}

// MyBookings lists the bookings of the token's owner.
func (c *Client) MyBookings(ctx context.Context, token string) ([]model.Booking, error) {
	var out []model.Booking
	err := c.do(ctx, http.MethodGet, "/me/bookings", token, nil, &out)
	return out, err
}

// PayBooking confirms payment of a booking.
func (c *Client) PayBooking(ctx context.Context, token, bookingID string) (model.PaymentResult, error) {
	var out model.PaymentResult
	err := c.do(ctx, http.MethodPost, "/bookings/"+url.PathEscape(bookingID)+"/payments", token, nil, &out)
	return out, err
}

// Settings returns the global booking settings.
func (c *Client) Settings(ctx context.Context) (model.Settings, error) {
	var out model.Settings
	err := c.do(ctx, http.MethodGet, "/settings", "", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("upstream %s %s: encode: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("upstream %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("upstream %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("upstream %s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Method: method, Path: path}
		var er model.ErrorResponse
		if json.Unmarshal(raw, &er) == nil {
			apiErr.Message = er.Message
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("upstream %s %s: decode: %w", method, path, err)
	}
	return nil
}
