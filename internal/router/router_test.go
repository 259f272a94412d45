package router

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
	"github.com/iliyamo/cinema-booking-gateway/internal/authstore"
	"github.com/iliyamo/cinema-booking-gateway/internal/config"
	"github.com/iliyamo/cinema-booking-gateway/internal/handler"
	"github.com/iliyamo/cinema-booking-gateway/internal/logger"
	"github.com/iliyamo/cinema-booking-gateway/internal/middleware"
	"github.com/iliyamo/cinema-booking-gateway/internal/queue/queuetest"
	"github.com/iliyamo/cinema-booking-gateway/internal/upstream"
	"github.com/iliyamo/cinema-booking-gateway/internal/upstream/upstreamtest"
)

const secret = "router-test-secret"

type gateway struct {
	e   *echo.Echo
	api *upstreamtest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	api := upstreamtest.New()
	t.Cleanup(api.Close)

	log := logger.Discard()
	a := app.New(app.Options{
		Upstream:   upstream.New(api.URL, 5*time.Second),
		Tokens:     authstore.NewMemoryStore(),
		Publisher:  &queuetest.Recorder{},
		Log:        log,
		SessionTTL: time.Hour,
	})

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLog(log, a.Metrics()))
	Register(e, Handlers{
		Auth:     handler.NewAuthHandler(a, secret, time.Hour, log),
		Browse:   handler.NewBrowseHandler(a, log),
		Sessions: handler.NewSessionHandler(a, log),
		Tickets:  handler.NewTicketsHandler(a, log),
		Health:   handler.Health(a),
		Metrics:  echo.WrapHandler(a.Metrics().Handler()),
	}, Options{
		JWTSecret: secret,
		Cache:     config.CacheConfig{Enabled: true},
		RateLimit: config.RateLimitConfig{Enabled: true},
	})
	return &gateway{e: e, api: api}
}

func (g *gateway) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	g.e.ServeHTTP(rec, req)
	return rec
}

func (g *gateway) login(t *testing.T) string {
	t.Helper()
	rec := g.do(t, http.MethodPost, "/v1/auth/login", `{"username":"moviegoer","password":"`+upstreamtest.Password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token    string `json:"token"`
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	assert.Equal(t, "/my-tickets", out.Redirect)
	return out.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestHealth(t *testing.T) {
	g := newGateway(t)
	rec := g.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["clock_active"])
}

func TestLogin(t *testing.T) {
	g := newGateway(t)

	t.Run("validation", func(t *testing.T) {
		rec := g.do(t, http.MethodPost, "/v1/auth/login", `{"username":"short","password":""}`, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		fields := decode(t, rec)["fields"].(map[string]any)
		assert.Equal(t, "Minimum 8 characters", fields["username"])
		assert.Equal(t, "This field is required", fields["password"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := g.do(t, http.MethodPost, "/v1/auth/login", `{"username":"moviegoer","password":"Wrongpass1"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "Invalid username or password")
	})

	t.Run("continues to next", func(t *testing.T) {
		rec := g.do(t, http.MethodPost, "/v1/auth/login?next=%2Fsessions%2F42", `{"username":"moviegoer","password":"`+upstreamtest.Password+`"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/sessions/42", decode(t, rec)["redirect"])
	})

	t.Run("external next is ignored", func(t *testing.T) {
		rec := g.do(t, http.MethodPost, "/v1/auth/login", `{"username":"moviegoer","password":"`+upstreamtest.Password+`","next":"https://evil.test"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/my-tickets", decode(t, rec)["redirect"])
	})
}

func TestRegister_Validation(t *testing.T) {
	g := newGateway(t)
	rec := g.do(t, http.MethodPost, "/v1/auth/register", `{"username":"newcomer1","password":"Secret123","passwordConfirmation":"Secret124"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["fields"].(map[string]any)
	assert.Equal(t, "Passwords must match", fields["passwordConfirmation"])

	rec = g.do(t, http.MethodPost, "/v1/auth/register", `{"username":"newcomer1","password":"Secret123","passwordConfirmation":"Secret123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/my-tickets", decode(t, rec)["redirect"])
}

func TestSessions_Guest(t *testing.T) {
	g := newGateway(t)

	rec := g.do(t, http.MethodGet, "/v1/sessions/42", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)
	assert.Equal(t, false, view["isAuthed"])
	assert.Equal(t, "Sign in to book", view["submitLabel"])

	rec = g.do(t, http.MethodPost, "/v1/sessions/42/bookings", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "auth_required", out["kind"])
	assert.Equal(t, "/auth?next=%2Fsessions%2F42", out["redirect"])

	rec = g.do(t, http.MethodGet, "/v1/sessions/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions_SelectAndBook(t *testing.T) {
	g := newGateway(t)
	tok := g.login(t)

	rec := g.do(t, http.MethodPost, "/v1/sessions/42/seats/toggle", `{"rowNumber":1,"seatNumber":2}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode(t, rec)
	assert.Len(t, view["selected"], 1)
	assert.Equal(t, true, view["canSubmit"])

	rec = g.do(t, http.MethodPost, "/v1/sessions/42/seats/toggle", `{"rowNumber":9,"seatNumber":9}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.do(t, http.MethodPost, "/v1/sessions/42/seats/toggle", `{"rowNumber":0}`, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.do(t, http.MethodPost, "/v1/sessions/42/bookings", "", tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "succeeded", out["kind"])
	assert.Equal(t, "/my-tickets", out["redirect"])
	assert.NotEmpty(t, out["bookingId"])

	rec = g.do(t, http.MethodGet, "/v1/me/tickets", "", tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode(t, rec)
	assert.Len(t, page["unpaid"], 1)
	assert.EqualValues(t, g.api.PaymentSeconds, page["paymentSeconds"])

	rec = g.do(t, http.MethodPost, "/v1/bookings/"+out["bookingId"].(string)+"/payments", "", tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, g.api.Calls(http.MethodPost, "/bookings/"+out["bookingId"].(string)+"/payments"))
}

func TestSessions_EmptySubmitIsNoop(t *testing.T) {
	g := newGateway(t)
	tok := g.login(t)
	rec := g.do(t, http.MethodPost, "/v1/sessions/42/bookings", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "noop", decode(t, rec)["kind"])
}

func TestTickets_RequireSession(t *testing.T) {
	g := newGateway(t)

	rec := g.do(t, http.MethodGet, "/v1/me/tickets", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/auth?next=%2Fmy-tickets", decode(t, rec)["redirect"])

	rec = g.do(t, http.MethodGet, "/v1/me/tickets", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPay_RejectsMalformedID(t *testing.T) {
	g := newGateway(t)
	tok := g.login(t)
	rec := g.do(t, http.MethodPost, "/v1/bookings/not-a-uuid/payments", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalog(t *testing.T) {
	g := newGateway(t)

	rec := g.do(t, http.MethodGet, "/v1/movies", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Arrival")

	rec = g.do(t, http.MethodGet, "/v1/movies/7/sessions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42")

	rec = g.do(t, http.MethodGet, "/v1/cinemas", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Odeon")

	rec = g.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_http_requests_total")
}

func TestTicketStream(t *testing.T) {
	g := newGateway(t)
	tok := g.login(t)
	srv := httptest.NewServer(g.e)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/me/tickets/stream?access_token="+tok, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	r := bufio.NewReader(resp.Body)
	event, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: tickets\n", event)
	data, err := r.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(data, "data: "))

	var page map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(data, "data: ")), &page))
	assert.Contains(t, page, "unpaid")
}
