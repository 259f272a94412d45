package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
	"github.com/iliyamo/cinema-booking-gateway/internal/queue"
	"github.com/iliyamo/cinema-booking-gateway/internal/tickets"
	"github.com/iliyamo/cinema-booking-gateway/internal/upstream"
)

// TicketsPage is one evaluation of the ticket list.
type TicketsPage struct {
	tickets.List
	Buckets tickets.Buckets `json:"-"`
}

func (a *App) bookings(ctx context.Context, c *Client, token string) ([]model.Booking, error) {
	key := keyBookings(c.ID)
	return querycache.Get(ctx, a.cache, key, []string{key}, func(ctx context.Context) ([]model.Booking, error) {
		return a.api.MyBookings(ctx, token)
	})
}

func (a *App) reloadBookings(ctx context.Context, c *Client, token string) ([]model.Booking, error) {
	key := keyBookings(c.ID)
	return querycache.Reload(ctx, a.cache, key, []string{key}, func(ctx context.Context) ([]model.Booking, error) {
		return a.api.MyBookings(ctx, token)
	})
}

// Settings returns the cached booking settings.
func (a *App) Settings(ctx context.Context) (model.Settings, error) {
	return querycache.Get(ctx, a.cache, keySettings, nil, a.api.Settings)
}

// Tickets builds the ticket list of c at now.
//
// Bookings, settings, movies and cinemas are loaded together; any failure
// fails the page.  Session details are then loaded once per distinct
// session and failures there only cost the start time of those tickets.
// Newly expired unpaid tickets trigger one bookings refetch per batch.
func (a *App) Tickets(ctx context.Context, c *Client, now time.Time) (TicketsPage, error) {
	// A ticket stream holds on to c without going through App.Client.
	c.touch(a.now())
	token := c.bearer()
	if token == "" {
		return TicketsPage{}, ErrUnauthenticated
	}

	var (
		bookings []model.Booking
		settings model.Settings
		movies   []model.Movie
		cinemas  []model.Cinema
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { bookings, err = a.bookings(gctx, c, token); return })
	g.Go(func() (err error) { settings, err = a.Settings(gctx); return })
	g.Go(func() (err error) { movies, err = a.Movies(gctx); return })
	g.Go(func() (err error) { cinemas, err = a.Cinemas(gctx); return })
	if err := g.Wait(); err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			a.forget(ctx, c)
			return TicketsPage{}, ErrUnauthenticated
		}
		return TicketsPage{}, fmt.Errorf("load tickets: %w", err)
	}

	sessions := a.prefetchSessions(ctx, bookings)
	buckets := tickets.Classify(bookings, sessions, settings, now)

	if fresh := c.expiry.Fresh(buckets.ExpiredIDs()); settings.BookingPaymentTimeSeconds > 0 && len(fresh) > 0 {
		a.metrics.ExpiryRefetch()
		for _, id := range fresh {
			ev := queue.NewEvent(queue.EventExpired, c.ID)
			ev.BookingID = id
			a.publish(ctx, ev)
		}
		if refreshed, err := a.reloadBookings(ctx, c, token); err != nil {
			a.log.Warn("refetch bookings after expiry", "client_id", c.ID, "error", err)
		} else {
			sessions = a.prefetchSessions(ctx, refreshed)
			buckets = tickets.Classify(refreshed, sessions, settings, now)
		}
	}

	cat := tickets.NewCatalog(movies, cinemas)
	return TicketsPage{
		List:    tickets.Render(buckets, cat, settings.BookingPaymentTimeSeconds),
		Buckets: buckets,
	}, nil
}

// prefetchSessions loads the details of every distinct session referenced
// by bookings.  Sessions that fail to load are absent from the result.
func (a *App) prefetchSessions(ctx context.Context, bookings []model.Booking) map[int]*model.MovieSessionDetails {
	ids := make(map[int]struct{}, len(bookings))
	for _, b := range bookings {
		ids[b.MovieSessionID] = struct{}{}
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[int]*model.MovieSessionDetails, len(ids))
	)
	for id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d, err := a.SessionDetails(ctx, id)
			if err != nil {
				a.log.Debug("session details unavailable", "session_id", id, "error", err)
				return
			}
			mu.Lock()
			out[id] = &d
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return out
}

// PayBooking confirms payment of bookingID and reloads the client's
// bookings so the ticket moves out of the unpaid bucket.
func (a *App) PayBooking(ctx context.Context, c *Client, bookingID string) (model.PaymentResult, error) {
	token := c.bearer()
	if token == "" {
		return model.PaymentResult{}, ErrUnauthenticated
	}
	res, err := a.api.PayBooking(ctx, token, bookingID)
	a.metrics.Payment(err)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			a.forget(ctx, c)
			return model.PaymentResult{}, ErrUnauthenticated
		}
		return model.PaymentResult{}, fmt.Errorf("pay booking %s: %w", bookingID, err)
	}

	ev := queue.NewEvent(queue.EventPaid, c.ID)
	ev.BookingID = bookingID
	a.publish(ctx, ev)

	a.cache.Invalidate(keyBookings(c.ID))
	if _, err := a.reloadBookings(ctx, c, token); err != nil {
		a.log.Warn("refetch bookings after payment", "client_id", c.ID, "error", err)
	}
	a.log.Info("booking paid", "client_id", c.ID, "booking_id", bookingID)
	return res, nil
}
