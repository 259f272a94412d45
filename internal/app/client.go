package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-gateway/internal/authstore"
	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
	"github.com/iliyamo/cinema-booking-gateway/internal/model"
	"github.com/iliyamo/cinema-booking-gateway/internal/seatmap"
	"github.com/iliyamo/cinema-booking-gateway/internal/tickets"
)

// Client is the state the gateway keeps for one browser.  The selection is
// guarded by mu; the flow and the expiry tracker synchronise themselves.
type Client struct {
	ID string

	mu        sync.Mutex
	token     string
	lastSeen  time.Time
	selection *seatmap.Selection
	flow      *booking.Flow
	expiry    *tickets.ExpiryTracker
}

// Authed reports whether the client holds an upstream token.
func (c *Client) Authed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Client returns the state of id, creating it on first sight.  A new state
// loads the persisted upstream token before it is returned, so the first
// authenticated call already carries it.
func (a *App) Client(ctx context.Context, id string) (*Client, error) {
	a.mu.Lock()
	c, ok := a.clients[id]
	a.mu.Unlock()
	if ok {
		c.touch(a.now())
		return c, nil
	}

	tok, err := a.tokens.Load(ctx, id)
	if err != nil && !errors.Is(err, authstore.ErrNotFound) {
		return nil, fmt.Errorf("load client %s: %w", id, err)
	}
	c = a.newClient(id, tok)

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.clients[id]; ok {
		return existing, nil
	}
	a.clients[id] = c
	return c, nil
}

func (a *App) newClient(id, token string) *Client {
	c := &Client{
		ID:        id,
		token:     token,
		lastSeen:  a.now(),
		selection: seatmap.NewSelection(),
		expiry:    tickets.NewExpiryTracker(),
	}
	c.flow = booking.NewFlow(reserver{api: a.api, client: c}, invalidator{cache: a.cache, clientID: id})
	return c
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

// Clients returns the number of tracked client states.
func (a *App) Clients() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clients)
}

// Prune drops client states not seen since cutoff and returns how many were
// removed.  Their tokens stay in the store and are reloaded on next sight.
func (a *App) Prune(cutoff time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for id, c := range a.clients {
		c.mu.Lock()
		idle := c.lastSeen.Before(cutoff)
		c.mu.Unlock()
		if idle {
			delete(a.clients, id)
			a.cache.Invalidate(keyBookings(id))
			n++
		}
	}
	return n
}

// Login exchanges credentials upstream and binds the token to client id.
func (a *App) Login(ctx context.Context, id string, p model.AuthPayload) error {
	res, err := a.api.Login(ctx, p)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return a.signIn(ctx, id, res.Token)
}

// Register creates the account upstream and signs the client in.
func (a *App) Register(ctx context.Context, id string, p model.AuthPayload) error {
	res, err := a.api.Register(ctx, p)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return a.signIn(ctx, id, res.Token)
}

func (a *App) signIn(ctx context.Context, id, token string) error {
	if token == "" {
		return errors.New("upstream returned an empty token")
	}
	if err := a.tokens.Save(ctx, id, token, a.sessionTTL); err != nil {
		return err
	}
	c, err := a.Client(ctx, id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.flow.ClearMessage()
	// A different account may have used this browser before.
	a.cache.Invalidate(keyBookings(id))
	a.log.Info("client signed in", "client_id", id)
	return nil
}

// Logout clears the stored token and drops the client state.
func (a *App) Logout(ctx context.Context, id string) error {
	if err := a.tokens.Delete(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.clients, id)
	a.mu.Unlock()
	a.cache.Invalidate(keyBookings(id))
	a.log.Info("client signed out", "client_id", id)
	return nil
}

// forget drops a token the booking API no longer accepts.
func (a *App) forget(ctx context.Context, c *Client) {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if err := a.tokens.Delete(ctx, c.ID); err != nil {
		a.log.Warn("drop rejected token", "client_id", c.ID, "error", err)
	}
	a.cache.Invalidate(keyBookings(c.ID))
}

// Guest returns a throwaway state for a browser without a session.  It is
// not registered and holds no token.
func (a *App) Guest() *Client { return a.newClient("", "") }
