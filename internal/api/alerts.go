package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/listeverything/finder/internal/alerting"
	"github.com/listeverything/finder/internal/datastore/repository"
	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
)

const (
	maxHistoryLimit     = 200
	defaultHistoryLimit = 50
)

// initAlertRoutes registers alert endpoints. Alerts are addressed by name
// within the context given by ?context=; an absent context means the alert
// watches every context.
func (c *Controller) initAlertRoutes() {
	if c.scheduler == nil {
		return
	}
	alerts := c.Group.Group("/alerts")

	alerts.GET("", c.ListAlerts)
	if c.alertRepo != nil {
		alerts.GET("/history", c.ListAlertHistory)
		alerts.DELETE("/history", c.ClearAlertHistory)
	}
	alerts.GET("/:name", c.GetAlert)
	alerts.PUT("/:name", c.PutAlert)
	alerts.PATCH("/:name", c.UpdateAlertSettings)
	alerts.DELETE("/:name", c.DeleteAlert)
	alerts.POST("/:name/rename", c.RenameAlert)
}

// ListAlerts returns alert status, optionally limited to one context.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	var key *string
	if v, ok := ctx.QueryParams()["context"]; ok && len(v) > 0 {
		key = &v[0]
	}
	alerts := c.scheduler.List(key)
	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
		"paused": c.scheduler.Paused(),
	})
}

// GetAlert returns one alert's status.
func (c *Controller) GetAlert(ctx echo.Context) error {
	st, err := c.scheduler.Get(ctx.QueryParam("context"), ctx.Param("name"))
	if err != nil {
		return c.storeError(ctx, err, "alert")
	}
	return ctx.JSON(http.StatusOK, st)
}

// PutAlert installs the request body as an alert. Without ?overwrite=true an
// existing name is a conflict.
func (c *Controller) PutAlert(ctx echo.Context) error {
	name := ctx.Param("name")
	contextKey := ctx.QueryParam("context")
	if contextKey != "" && c.contexts != nil {
		if _, ok := c.contexts.Context(contextKey); !ok {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Context not found"})
		}
	}

	p, err := bindTree(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if _, err := filter.ParseBaseKind(string(p.Base)); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if p.Alert.Threshold < 0 || p.Alert.SustainTicks < 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Threshold and sustain must not be negative"})
	}

	tree, dropped := filter.FromPortable(p, c.catalog, c.logger)
	overwrite := queryBool(ctx, "overwrite")
	if err := c.scheduler.Add(contextKey, name, tree, overwrite); err != nil {
		return c.storeError(ctx, err, "alert")
	}

	c.logger.Info("alert installed",
		logger.String("name", name),
		logger.String("context", contextKey),
		logger.Int("dropped_nodes", len(dropped)))

	st, err := c.scheduler.Get(contextKey, name)
	if err != nil {
		return c.storeError(ctx, err, "alert")
	}
	code := http.StatusCreated
	if overwrite {
		code = http.StatusOK
	}
	return ctx.JSON(code, st)
}

type alertSettingsRequest struct {
	Priority     *string `json:"priority"`
	SustainTicks *int64  `json:"sustain_ticks"`
	Threshold    *int    `json:"threshold"`
	Comparison   *string `json:"comparison"`
}

// UpdateAlertSettings changes the given settings of one alert.
func (c *Controller) UpdateAlertSettings(ctx echo.Context) error {
	contextKey, name := ctx.QueryParam("context"), ctx.Param("name")

	var body alertSettingsRequest
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	var updates []func() error
	if body.Priority != nil {
		p, err := alerting.ParsePriority(*body.Priority)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		updates = append(updates, func() error { return c.scheduler.SetPriority(contextKey, name, p) })
	}
	if body.Comparison != nil {
		cmp, err := alerting.ParseComparison(*body.Comparison)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		updates = append(updates, func() error { return c.scheduler.SetComparison(contextKey, name, cmp) })
	}
	if body.SustainTicks != nil {
		if *body.SustainTicks < 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Sustain must not be negative"})
		}
		updates = append(updates, func() error { return c.scheduler.SetSustain(contextKey, name, *body.SustainTicks) })
	}
	if body.Threshold != nil {
		if *body.Threshold < 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Threshold must not be negative"})
		}
		updates = append(updates, func() error { return c.scheduler.SetThreshold(contextKey, name, *body.Threshold) })
	}

	for _, update := range updates {
		if err := update(); err != nil {
			return c.storeError(ctx, err, "alert")
		}
	}

	st, err := c.scheduler.Get(contextKey, name)
	if err != nil {
		return c.storeError(ctx, err, "alert")
	}
	return ctx.JSON(http.StatusOK, st)
}

// DeleteAlert removes one alert.
func (c *Controller) DeleteAlert(ctx echo.Context) error {
	if err := c.scheduler.Remove(ctx.QueryParam("context"), ctx.Param("name")); err != nil {
		return c.storeError(ctx, err, "alert")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RenameAlert renames an alert within its context.
func (c *Controller) RenameAlert(ctx echo.Context) error {
	var body renameRequest
	if err := ctx.Bind(&body); err != nil || body.Name == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "New name is required"})
	}
	if err := c.scheduler.Rename(ctx.QueryParam("context"), ctx.Param("name"), body.Name, body.Overwrite); err != nil {
		return c.storeError(ctx, err, "alert")
	}
	return ctx.JSON(http.StatusOK, map[string]string{"name": body.Name})
}

// ListAlertHistory returns paginated alert firing history.
func (c *Controller) ListAlertHistory(ctx echo.Context) error {
	f := repository.AlertHistoryFilter{AlertName: ctx.QueryParam("alert")}

	if v, ok := ctx.QueryParams()["context"]; ok && len(v) > 0 {
		f.ContextKey = &v[0]
	}
	// Missing, malformed or non-positive limits fall back to the default.
	f.Limit = defaultHistoryLimit
	if v, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil && v > 0 {
		f.Limit = min(v, maxHistoryLimit)
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		v, err := strconv.Atoi(offsetParam)
		if err == nil && v >= 0 {
			f.Offset = v
		}
	}

	items, total, err := c.alertRepo.ListHistory(ctx.Request().Context(), f)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alert history", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"history": items,
		"total":   total,
		"limit":   f.Limit,
		"offset":  f.Offset,
	})
}

// ClearAlertHistory deletes all alert history records.
func (c *Controller) ClearAlertHistory(ctx echo.Context) error {
	deleted, err := c.alertRepo.DeleteHistory(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to clear alert history", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"deleted": deleted})
}
