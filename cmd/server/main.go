package main // Entry point of the booking gateway

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
	"github.com/iliyamo/cinema-booking-gateway/internal/authstore"
	"github.com/iliyamo/cinema-booking-gateway/internal/clock"
	"github.com/iliyamo/cinema-booking-gateway/internal/config"
	"github.com/iliyamo/cinema-booking-gateway/internal/handler"
	"github.com/iliyamo/cinema-booking-gateway/internal/logger"
	"github.com/iliyamo/cinema-booking-gateway/internal/metrics"
	"github.com/iliyamo/cinema-booking-gateway/internal/middleware"
	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
	"github.com/iliyamo/cinema-booking-gateway/internal/queue"
	"github.com/iliyamo/cinema-booking-gateway/internal/router"
	"github.com/iliyamo/cinema-booking-gateway/internal/upstream"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the token store, the catalog cache and the rate limiter.
	// Without it the gateway still runs with in-memory tokens.
	var tokens authstore.Store
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable; using in-memory token store, cache and rate limit disabled", "error", err)
		tokens = authstore.NewMemoryStore()
	} else {
		defer rdb.Close()
		tokens = authstore.NewRedisStore(rdb, "")
	}

	var pub queue.Publisher = queue.NoopPublisher{}
	if cfg.EventsEnabled {
		amqpPub := queue.NewAMQPPublisher(cfg.AMQPURL, log)
		defer amqpPub.Close()
		pub = amqpPub
	}

	m := metrics.New()
	cache := querycache.New(cfg.PendingTimeout)
	clk := clock.New(cfg.ClockInterval)
	m.ObserveCache(cache.Stats)
	m.ObserveGauge("gateway_query_cache_in_flight", "Fetches currently in flight", func() float64 { return float64(cache.InFlight()) })
	m.ObserveGauge("gateway_clock_subscribers", "Countdown clock subscribers", func() float64 { return float64(clk.Subscribers()) })

	a := app.New(app.Options{
		Upstream:   upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout),
		Tokens:     tokens,
		Cache:      cache,
		Clock:      clk,
		Publisher:  pub,
		Metrics:    m,
		Log:        log,
		SessionTTL: cfg.SessionTTL,
	})
	m.ObserveGauge("gateway_clients", "Tracked browser client states", func() float64 { return float64(a.Clients()) })
	go pruneClients(ctx, a, cfg.SessionTTL)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog(log, m))

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(a, cfg.JWTSecret, cfg.SessionTTL, log),
		Browse:   handler.NewBrowseHandler(a, log),
		Sessions: handler.NewSessionHandler(a, log),
		Tickets:  handler.NewTicketsHandler(a, log),
		Health:   handler.Health(a),
		Metrics:  echo.WrapHandler(m.Handler()),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Rdb:       rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "upstream", cfg.UpstreamBaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

// pruneClients drops browser states idle for longer than ttl.
func pruneClients(ctx context.Context, a *app.App, ttl time.Duration) {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			a.Prune(now.Add(-ttl))
		}
	}
}
