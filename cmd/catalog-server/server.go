package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/artwork-catalog/internal/session"
	"github.com/Sternrassler/artwork-catalog/pkg/catalog"
	"github.com/Sternrassler/artwork-catalog/pkg/client"
	"github.com/Sternrassler/artwork-catalog/pkg/metrics"
	"github.com/Sternrassler/artwork-catalog/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// pinger is the part of the Redis client /ready needs.
type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type server struct {
	store  *session.Store
	redis  pinger
	logger zerolog.Logger
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type selectionRequest struct {
	Page     int          `json:"page"`
	Selected []catalog.ID `json:"selected"`
}

type selectionResponse struct {
	Count int          `json:"count"`
	IDs   []catalog.ID `json:"ids"`
}

// bulkRequest carries the count as typed by the user, either a JSON string
// or a JSON number.
type bulkRequest struct {
	Count json.RawMessage `json:"count"`
}

func (r bulkRequest) raw() string {
	var s string
	if err := json.Unmarshal(r.Count, &s); err == nil {
		return s
	}
	return string(r.Count)
}

// newServer builds the HTTP API over store.
func newServer(store *session.Store, redisClient pinger, logger zerolog.Logger) *echo.Echo {
	s := &server{store: store, redis: redisClient, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Debug()
			if v.Status >= http.StatusInternalServerError {
				event = logger.Warn()
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Err(v.Error).
				Msg("HTTP request completed")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/health", s.health)
	e.GET("/ready", s.ready)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	g := e.Group("/sessions")
	g.POST("", s.createSession)
	g.DELETE("/:id", s.deleteSession)
	g.GET("/:id/view", s.view)
	g.GET("/:id/pages/:page", s.loadPage)
	g.GET("/:id/selection", s.getSelection)
	g.PUT("/:id/selection", s.applySelection)
	g.DELETE("/:id/selection", s.clearSelection)
	g.POST("/:id/bulk", s.selectFirstN)
	g.DELETE("/:id/bulk", s.cancelBulk)

	return e
}

func (s *server) health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *server) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Readiness check failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "redis unavailable")
	}
	return c.String(http.StatusOK, "OK")
}

func (s *server) createSession(c echo.Context) error {
	sess := s.store.Create()
	return c.JSON(http.StatusCreated, createSessionResponse{ID: sess.ID})
}

func (s *server) deleteSession(c echo.Context) error {
	if err := s.store.Delete(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *server) session(c echo.Context) (*session.Session, error) {
	sess, err := s.store.Get(c.Param("id"))
	if err != nil {
		return nil, httpError(err)
	}
	return sess, nil
}

func (s *server) view(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.View())
}

func (s *server) loadPage(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "page must be an integer")
	}

	view, err := sess.LoadPage(c.Request().Context(), page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *server) getSelection(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	ids := sess.Selection()
	return c.JSON(http.StatusOK, selectionResponse{Count: len(ids), IDs: ids})
}

func (s *server) applySelection(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var req selectionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	view, err := sess.ApplySelection(req.Page, req.Selected)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *server) clearSelection(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.ClearSelection())
}

func (s *server) selectFirstN(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	view, err := sess.SelectFirstN(c.Request().Context(), req.raw())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *server) cancelBulk(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if !sess.CancelBulk() {
		return echo.NewHTTPError(http.StatusNotFound, "no bulk selection in progress")
	}
	return c.NoContent(http.StatusNoContent)
}

// httpError maps domain errors to HTTP statuses. Anything unrecognized came
// from the upstream API.
func httpError(err error) *echo.HTTPError {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidPage):
		status = http.StatusBadRequest
	case errors.Is(err, pagination.ErrInvalidCount):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoPage),
		errors.Is(err, session.ErrStalePage),
		errors.Is(err, context.Canceled):
		status = http.StatusConflict
	case errors.Is(err, client.ErrRateLimited):
		status = http.StatusServiceUnavailable
	}
	return echo.NewHTTPError(status, err.Error())
}
