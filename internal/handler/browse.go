package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-gateway/internal/app"
)

// BrowseHandler serves the public catalog: movies, cinemas and their
// showtimes.  Responses are cached by the Redis response cache middleware.
type BrowseHandler struct {
	App *app.App
	Log *slog.Logger
}

func NewBrowseHandler(a *app.App, log *slog.Logger) *BrowseHandler {
	return &BrowseHandler{App: a, Log: log}
}

// Movies: GET /v1/movies
func (h *BrowseHandler) Movies(c echo.Context) error {
	list, err := h.App.Movies(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Movie: GET /v1/movies/:id
func (h *BrowseHandler) Movie(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	m, err := h.App.Movie(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// MovieSessions: GET /v1/movies/:id/sessions, ordered by start time.
func (h *BrowseHandler) MovieSessions(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	list, err := h.App.MovieSessions(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Cinemas: GET /v1/cinemas
func (h *BrowseHandler) Cinemas(c echo.Context) error {
	list, err := h.App.Cinemas(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// CinemaSessions: GET /v1/cinemas/:id/sessions, ordered by start time.
func (h *BrowseHandler) CinemaSessions(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	list, err := h.App.CinemaSessions(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// pathID parses the positive integer :id parameter.
func pathID(c echo.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
