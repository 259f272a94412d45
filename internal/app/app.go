// Package app is the explicit application context of the gateway.  App owns
// the process-wide collaborators (upstream client, query cache, clock, token
// store, event publisher, metrics) and a registry of per-browser Client
// states.  It is built once in main and handed to the HTTP layer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-gateway/internal/authstore"
	"github.com/iliyamo/cinema-booking-gateway/internal/clock"
	"github.com/iliyamo/cinema-booking-gateway/internal/metrics"
	"github.com/iliyamo/cinema-booking-gateway/internal/model"
	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
	"github.com/iliyamo/cinema-booking-gateway/internal/queue"
)

// ErrUnauthenticated is returned by operations that need an upstream token
// when the client has none.
var ErrUnauthenticated = errors.New("authentication required")

// Backend is the booking API as seen by the gateway.  *upstream.Client
// implements it.
type Backend interface {
	Login(ctx context.Context, p model.AuthPayload) (model.TokenResponse, error)
	Register(ctx context.Context, p model.AuthPayload) (model.TokenResponse, error)
	Movies(ctx context.Context) ([]model.Movie, error)
	Movie(ctx context.Context, id int) (model.Movie, error)
	Cinemas(ctx context.Context) ([]model.Cinema, error)
	MovieSessions(ctx context.Context, movieID int) ([]model.MovieSession, error)
	CinemaSessions(ctx context.Context, cinemaID int) ([]model.MovieSession, error)
	MovieSessionDetails(ctx context.Context, id int) (model.MovieSessionDetails, error)
	BookSeats(ctx context.Context, token string, movieSessionID int, seats []model.Seat) (model.BookingCreated, error)
	MyBookings(ctx context.Context, token string) ([]model.Booking, error)
	PayBooking(ctx context.Context, token, bookingID string) (model.PaymentResult, error)
	Settings(ctx context.Context) (model.Settings, error)
}

// Options wires an App.  Upstream and Tokens are required; everything else
// has a usable default.
type Options struct {
	Upstream       Backend
	Tokens         authstore.Store
	Cache          *querycache.Cache
	Clock          *clock.Clock
	Publisher      queue.Publisher
	Metrics        *metrics.Metrics
	Log            *slog.Logger
	SessionTTL     time.Duration // lifetime of a stored upstream token
	PublishTimeout time.Duration // bound on one event publish, default 2s
}

// App is safe for concurrent use.
type App struct {
	api            Backend
	tokens         authstore.Store
	cache          *querycache.Cache
	clock          *clock.Clock
	pub            queue.Publisher
	metrics        *metrics.Metrics
	log            *slog.Logger
	sessionTTL     time.Duration
	publishTimeout time.Duration
	now            func() time.Time

	mu      sync.Mutex
	clients map[string]*Client
}

// New builds an App from o.
func New(o Options) *App {
	a := &App{
		api:            o.Upstream,
		tokens:         o.Tokens,
		cache:          o.Cache,
		clock:          o.Clock,
		pub:            o.Publisher,
		metrics:        o.Metrics,
		log:            o.Log,
		sessionTTL:     o.SessionTTL,
		publishTimeout: o.PublishTimeout,
		now:            time.Now,
		clients:        make(map[string]*Client),
	}
	if a.cache == nil {
		a.cache = querycache.New(querycache.DefaultPendingTimeout)
	}
	if a.clock == nil {
		a.clock = clock.New(time.Second)
	}
	if a.pub == nil {
		a.pub = queue.NoopPublisher{}
	}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.publishTimeout <= 0 {
		a.publishTimeout = 2 * time.Second
	}
	return a
}

// Cache returns the shared query cache.
func (a *App) Cache() *querycache.Cache { return a.cache }

// Clock returns the shared payment countdown clock.
func (a *App) Clock() *clock.Clock { return a.clock }

// Metrics returns the collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// publish sends ev without letting a slow broker hold up the request.
// Failures are logged and dropped.
func (a *App) publish(ctx context.Context, ev queue.BookingEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.publishTimeout)
	defer cancel()
	if err := a.pub.Publish(pctx, ev); err != nil {
		a.log.Warn("publish booking event", "type", ev.Type, "client_id", ev.ClientID, "error", err)
	}
}

// Cache keys and tags.  Bookings are per client; everything else is shared.
const (
	keyMovies   = "movies"
	keyCinemas  = "cinemas"
	keySettings = "settings"
	tagCatalog  = "catalog"
)

func keyMovie(id int) string          { return fmt.Sprintf("movie:%d", id) }
func keyMovieSessions(id int) string  { return fmt.Sprintf("movie-sessions:%d", id) }
func keyCinemaSessions(id int) string { return fmt.Sprintf("cinema-sessions:%d", id) }
func keySession(id int) string        { return fmt.Sprintf("session:%d", id) }
func keyBookings(clientID string) string {
	return "bookings:" + clientID
}
