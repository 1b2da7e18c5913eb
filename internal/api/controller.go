// Package api serves finder's HTTP interface under /api/v1.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/listeverything/finder/internal/alerting"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
	"github.com/listeverything/finder/internal/notification"
	"github.com/listeverything/finder/internal/searches"
)

const (
	apiPrefix      = "/api/v1"
	maxBodyBytes   = "1M"
	shutdownPeriod = 5 * time.Second
)

// Contexts gives the API access to live contexts.
type Contexts interface {
	Context(key string) (filter.Context, bool)
	Current() filter.Context
}

// Controller holds the dependencies of every handler.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	catalog       *filter.Catalog
	evaluator     *filter.Evaluator
	contexts      Contexts
	searches      *searches.Library
	scheduler     *alerting.Scheduler
	alertRepo     repository.AlertRepository
	notifications *notification.Service
	metrics       http.Handler
	godMode       bool
	logger        logger.Logger
}

// Options configures a Controller. Nil members disable their routes.
type Options struct {
	Catalog       *filter.Catalog
	Evaluator     *filter.Evaluator
	Contexts      Contexts
	Searches      *searches.Library
	Scheduler     *alerting.Scheduler
	AlertRepo     repository.AlertRepository
	Notifications *notification.Service
	Metrics       http.Handler
	GodMode       bool
	Logger        logger.Logger
}

// New creates the echo instance and registers every route.
func New(opts *Options) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodyBytes))

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = filter.Default()
	}

	c := &Controller{
		Echo:          e,
		Group:         e.Group(apiPrefix),
		catalog:       catalog,
		evaluator:     opts.Evaluator,
		contexts:      opts.Contexts,
		searches:      opts.Searches,
		scheduler:     opts.Scheduler,
		alertRepo:     opts.AlertRepo,
		notifications: opts.Notifications,
		metrics:       opts.Metrics,
		godMode:       opts.GodMode,
		logger:        log.With(logger.String("component", "api")),
	}
	e.Use(c.requestLogger())

	c.Group.GET("/catalog", c.GetCatalog)
	c.initSearchRoutes()
	c.initAlertRoutes()
	c.initNotificationRoutes()
	if c.metrics != nil {
		c.Group.GET("/metrics", echo.WrapHandler(c.metrics))
	}
	return c
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (c *Controller) Start(ctx context.Context, listen string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := c.Echo.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	c.logger.Info("http server started", logger.String("listen", listen))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	return c.Echo.Shutdown(shutdownCtx)
}

func (c *Controller) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				c.logger.Warn("request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			c.logger.Debug("request", fields...)
			return nil
		},
	})
}

// HandleError logs err and writes message with code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	c.logger.Error(message,
		logger.String("path", ctx.Path()),
		logger.Error(err))
	return ctx.JSON(code, map[string]string{"error": message})
}

// storeError maps the named-store sentinels to their status codes.
func (c *Controller) storeError(ctx echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, alerting.ErrNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": what + " not found"})
	case errors.Is(err, repository.ErrDuplicateName), errors.Is(err, alerting.ErrDuplicateName):
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "A " + what + " with this name already exists"})
	default:
		return c.HandleError(ctx, err, "Failed to update "+what, http.StatusInternalServerError)
	}
}

// GetCatalog returns the predicate menu.
func (c *Controller) GetCatalog(ctx echo.Context) error {
	advanced := c.godMode || queryBool(ctx, "advanced")

	type kindView struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	type entryView struct {
		ID    string     `json:"id"`
		Label string     `json:"label"`
		Kinds []kindView `json:"kinds,omitempty"`
	}

	entries := c.catalog.ListSelectable(advanced)
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		if e.Kind != nil {
			out = append(out, entryView{ID: e.Kind.ID, Label: e.Kind.Label})
			continue
		}
		v := entryView{ID: e.Category.ID, Label: e.Category.Label}
		for _, k := range c.catalog.CategoryKinds(e.Category.ID, advanced) {
			v.Kinds = append(v.Kinds, kindView{ID: k.ID, Label: k.Label})
		}
		out = append(out, v)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"entries": out})
}

// bindTree decodes a portable tree request body.
func bindTree(ctx echo.Context) (filter.PortableTree, error) {
	var p filter.PortableTree
	if err := ctx.Bind(&p); err != nil {
		return p, err
	}
	return p, nil
}

func queryBool(ctx echo.Context, name string) bool {
	v, err := strconv.ParseBool(ctx.QueryParam(name))
	return err == nil && v
}

// resolveContext returns the context named by the "context" query parameter,
// or the current one when it is absent.
func (c *Controller) resolveContext(ctx echo.Context) (filter.Context, bool) {
	if c.contexts == nil {
		return nil, false
	}
	key := ctx.QueryParam("context")
	if key == "" {
		cur := c.contexts.Current()
		return cur, cur != nil
	}
	return c.contexts.Context(key)
}
