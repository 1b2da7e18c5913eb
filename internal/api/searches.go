package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/listeverything/finder/internal/filter"
	"github.com/listeverything/finder/internal/logger"
)

// initSearchRoutes registers saved-search endpoints.
func (c *Controller) initSearchRoutes() {
	if c.searches == nil {
		return
	}
	s := c.Group.Group("/searches")
	s.GET("", c.ListSearches)
	s.GET("/:name", c.GetSearch)
	s.PUT("/:name", c.PutSearch)
	s.DELETE("/:name", c.DeleteSearch)
	s.POST("/:name/rename", c.RenameSearch)
	s.POST("/:name/evaluate", c.EvaluateSearch)
}

// ListSearches returns the saved search names.
func (c *Controller) ListSearches(ctx echo.Context) error {
	names, err := c.searches.Names(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list searches", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"searches": names, "count": len(names)})
}

// GetSearch returns the portable form of a saved search.
func (c *Controller) GetSearch(ctx echo.Context) error {
	p, err := c.searches.Portable(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return c.storeError(ctx, err, "search")
	}
	return ctx.JSON(http.StatusOK, p)
}

// PutSearch stores the request body under :name. Without ?overwrite=true an
// existing name is a conflict.
func (c *Controller) PutSearch(ctx echo.Context) error {
	name := ctx.Param("name")
	p, err := bindTree(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if _, err := filter.ParseBaseKind(string(p.Base)); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	tree, dropped := filter.FromPortable(p, c.catalog, c.logger)
	overwrite := queryBool(ctx, "overwrite")
	if err := c.searches.Save(ctx.Request().Context(), name, tree, overwrite); err != nil {
		return c.storeError(ctx, err, "search")
	}

	c.logger.Info("search saved",
		logger.String("name", name),
		logger.Int("dropped_nodes", len(dropped)))

	code := http.StatusCreated
	if overwrite {
		code = http.StatusOK
	}
	return ctx.JSON(code, map[string]any{"name": name, "dropped": len(dropped)})
}

// DeleteSearch removes a saved search.
func (c *Controller) DeleteSearch(ctx echo.Context) error {
	if err := c.searches.Delete(ctx.Request().Context(), ctx.Param("name")); err != nil {
		return c.storeError(ctx, err, "search")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type renameRequest struct {
	Name      string `json:"name"`
	Overwrite bool   `json:"overwrite"`
}

// RenameSearch renames a saved search.
func (c *Controller) RenameSearch(ctx echo.Context) error {
	var body renameRequest
	if err := ctx.Bind(&body); err != nil || body.Name == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "New name is required"})
	}
	if err := c.searches.Rename(ctx.Request().Context(), ctx.Param("name"), body.Name, body.Overwrite); err != nil {
		return c.storeError(ctx, err, "search")
	}
	return ctx.JSON(http.StatusOK, map[string]string{"name": body.Name})
}

type entityView struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Label    string          `json:"label"`
	Position filter.Position `json:"position"`
}

func entityViews(es []filter.Entity) []entityView {
	out := make([]entityView, len(es))
	for i, e := range es {
		out[i] = entityView{ID: e.ID(), Kind: e.KindName(), Label: e.Label(), Position: e.Position()}
	}
	return out
}

// EvaluateSearch binds a saved search to ?context= (default: current) and
// returns the matching entities in display order.
func (c *Controller) EvaluateSearch(ctx echo.Context) error {
	if c.evaluator == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Evaluation is not available"})
	}
	worldCtx, ok := c.resolveContext(ctx)
	if !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Context not found"})
	}
	tree, err := c.searches.Load(ctx.Request().Context(), ctx.Param("name"), worldCtx)
	if err != nil {
		return c.storeError(ctx, err, "search")
	}
	results := c.evaluator.Evaluate(tree, worldCtx)
	return ctx.JSON(http.StatusOK, map[string]any{
		"context": worldCtx.Key(),
		"results": entityViews(results),
		"count":   len(results),
	})
}
