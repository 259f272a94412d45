package app

import (
	"context"
	"sort"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
)

var catalogTags = []string{tagCatalog}

// Movies returns every movie.
func (a *App) Movies(ctx context.Context) ([]model.Movie, error) {
	return querycache.Get(ctx, a.cache, keyMovies, catalogTags, a.api.Movies)
}

// Movie returns one movie or an error matching upstream.ErrNotFound.
func (a *App) Movie(ctx context.Context, id int) (model.Movie, error) {
	return querycache.Get(ctx, a.cache, keyMovie(id), catalogTags, func(ctx context.Context) (model.Movie, error) {
		return a.api.Movie(ctx, id)
	})
}

// Cinemas returns every cinema.
func (a *App) Cinemas(ctx context.Context) ([]model.Cinema, error) {
	return querycache.Get(ctx, a.cache, keyCinemas, catalogTags, a.api.Cinemas)
}

// MovieSessions returns the sessions of a movie ordered by start time.
func (a *App) MovieSessions(ctx context.Context, movieID int) ([]model.MovieSession, error) {
	list, err := querycache.Get(ctx, a.cache, keyMovieSessions(movieID), catalogTags, func(ctx context.Context) ([]model.MovieSession, error) {
		return a.api.MovieSessions(ctx, movieID)
	})
	if err != nil {
		return nil, err
	}
	return SortSessions(list), nil
}

// CinemaSessions returns the sessions of a cinema ordered by start time.
func (a *App) CinemaSessions(ctx context.Context, cinemaID int) ([]model.MovieSession, error) {
	list, err := querycache.Get(ctx, a.cache, keyCinemaSessions(cinemaID), catalogTags, func(ctx context.Context) ([]model.MovieSession, error) {
		return a.api.CinemaSessions(ctx, cinemaID)
	})
	if err != nil {
		return nil, err
	}
	return SortSessions(list), nil
}

// InvalidateCatalog drops every cached catalog read.
func (a *App) InvalidateCatalog() { a.cache.Invalidate(tagCatalog) }

// SortSessions returns a copy of list ordered by start time, then id.
// Sessions whose start time does not parse go last.
func SortSessions(list []model.MovieSession) []model.MovieSession {
	out := make([]model.MovieSession, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		ti, iok := out[i].StartAt()
		tj, jok := out[j].StartAt()
		switch {
		case iok && jok && !ti.Equal(tj):
			return ti.Before(tj)
		case iok != jok:
			return iok
		}
		return out[i].ID < out[j].ID
	})
	return out
}
