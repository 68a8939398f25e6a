package handlers

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
)

// ConflictResolver resolves and detects sync conflicts
type ConflictResolver interface {
	Resolve(ctx context.Context, record models.ConflictRecord, strategy models.ConflictStrategy) models.ConflictResolution
	Detect(internal, external models.RecordVersion) models.ConflictDetection
}

// ConflictHandler serves the conflict endpoints
type ConflictHandler struct {
	logger ectologger.Logger
}

func NewConflictHandler(logger ectologger.Logger) *ConflictHandler {
	return &ConflictHandler{logger: logger}
}

// RegisterRoutes registers conflict routes
func (h *ConflictHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/conflicts/resolve", h.Resolve)
	g.POST("/conflicts/detect", h.Detect)
}

// Resolve returns 200 for every verdict, including resolved=false
func (h *ConflictHandler) Resolve(c echo.Context) error {
	var req models.ResolveConflictRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, resolver, err := inject[ConflictResolver](c, h.logger)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resolver.Resolve(ctx, req.Record, req.Strategy))
}

func (h *ConflictHandler) Detect(c echo.Context) error {
	var req models.DetectConflictRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	_, resolver, err := inject[ConflictResolver](c, h.logger)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resolver.Detect(req.Internal, req.External))
}
