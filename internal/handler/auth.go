package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
	"github.com/iliyamo/cinema-booking-gateway/internal/booking"
	"github.com/iliyamo/cinema-booking-gateway/internal/middleware"
	"github.com/iliyamo/cinema-booking-gateway/internal/model"
	"github.com/iliyamo/cinema-booking-gateway/internal/upstream"
	"github.com/iliyamo/cinema-booking-gateway/internal/utils"
)

// User-facing auth failures.
const (
	msgLoginFailed    = "Invalid username or password. Check your details and try again"
	msgRegisterFailed = "Could not register. Please try again"
)

// AuthHandler signs browsers in and out.  The upstream token is kept by the
// app; the browser only ever sees the gateway session token.
type AuthHandler struct {
	App        *app.App
	Secret     string
	SessionTTL time.Duration
	Log        *slog.Logger
}

func NewAuthHandler(a *app.App, secret string, ttl time.Duration, log *slog.Logger) *AuthHandler {
	return &AuthHandler{App: a, Secret: secret, SessionTTL: ttl, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username" validate:"required,min=8"`
	Password string `json:"password" validate:"required,min=8"`
	Next     string `json:"next"`
}

type registerReq struct {
	Username             string `json:"username" validate:"required,min=8"`
	Password             string `json:"password" validate:"required,min=8,containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ,containsany=0123456789"`
	PasswordConfirmation string `json:"passwordConfirmation" validate:"required,eqfield=Password"`
}

type authResp struct {
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`
	Redirect string    `json:"redirect"`
}

// Login: exchange credentials upstream and issue a session token.  The
// redirect is the "next" continuation (body or query), defaulting to the
// ticket list.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	next := req.Next
	if next == "" {
		next = c.QueryParam("next")
	}

	id := h.clientID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err := h.App.Login(ctx, id, model.AuthPayload{Username: strings.TrimSpace(req.Username), Password: req.Password})
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgLoginFailed})
		}
		return writeError(c, h.Log, err)
	}
	return h.issue(c, id, SafeNext(next))
}

// Register: create the account upstream, sign in and continue to the ticket
// list.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}

	id := h.clientID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err := h.App.Register(ctx, id, model.AuthPayload{Username: strings.TrimSpace(req.Username), Password: req.Password})
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			status := http.StatusBadRequest
			if errors.Is(err, upstream.ErrConflict) {
				status = http.StatusConflict
			}
			return c.JSON(status, echo.Map{"error": msgRegisterFailed})
		}
		return writeError(c, h.Log, err)
	}
	return h.issue(c, id, booking.TicketsPath)
}

// Logout: forget the upstream token of the calling client.
func (h *AuthHandler) Logout(c echo.Context) error {
	id := middleware.ClientID(c)
	if id == "" {
		return c.NoContent(http.StatusNoContent)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.App.Logout(ctx, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// clientID keeps the id of an existing session so a guest's browser state
// survives signing in.
func (h *AuthHandler) clientID(c echo.Context) string {
	if id := middleware.ClientID(c); id != "" {
		return id
	}
	return utils.NewClientID()
}

func (h *AuthHandler) issue(c echo.Context, id, redirect string) error {
	tok, err := utils.NewSessionToken(h.Secret, id, h.SessionTTL)
	if err != nil {
		h.Log.Error("issue session token", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue session"})
	}
	return c.JSON(http.StatusOK, authResp{Token: tok.Token, Expires: tok.Exp, Redirect: redirect})
}

// SafeNext returns next when it is a local absolute path and the ticket list
// otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return booking.TicketsPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return booking.TicketsPath
	}
	return next
}
