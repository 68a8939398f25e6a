package handlers

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Resolver resolves transcript documents for events
type Resolver interface {
	ResolveDocumentForEvent(ctx context.Context, event models.Event) (*models.Resolution, error)
	ResolveBatch(ctx context.Context, evts []models.Event, stopOnError bool) models.BatchResult
}

// Ranker ranks a caller-supplied candidate pool without touching storage
type Ranker interface {
	Rank(event models.Event, candidates []models.DocumentCandidate, current *models.CurrentDecision) models.MatchResult
}

// ResolutionHandler serves the resolve and rank endpoints
type ResolutionHandler struct {
	logger ectologger.Logger
}

func NewResolutionHandler(logger ectologger.Logger) *ResolutionHandler {
	return &ResolutionHandler{logger: logger}
}

// RegisterRoutes registers resolution routes
func (h *ResolutionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/resolve", h.Resolve)
	g.POST("/resolve/batch", h.ResolveBatch)
	g.POST("/rank", h.Rank)
}

// Resolve runs the resolution waterfall for one event
func (h *ResolutionHandler) Resolve(c echo.Context) error {
	var event models.Event
	if err := bindAndValidate(c, &event); err != nil {
		return err
	}

	ctx, resolver, err := inject[Resolver](c, h.logger)
	if err != nil {
		return err
	}

	res, err := resolver.ResolveDocumentForEvent(ctx, event)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ResolveBatch resolves events sequentially. Per-item failures are reported
// in the body; the response is 200 unless the request itself is invalid.
func (h *ResolutionHandler) ResolveBatch(c echo.Context) error {
	var req models.ResolveBatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, resolver, err := inject[Resolver](c, h.logger)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithField("batch_size", len(req.Events)).Info("Resolving batch")
	return c.JSON(http.StatusOK, resolver.ResolveBatch(ctx, req.Events, req.StopOnError))
}

// Rank scores a candidate pool for an event
func (h *ResolutionHandler) Rank(c echo.Context) error {
	var req models.RankRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	for _, candidate := range req.Candidates {
		if err := validate.Struct(candidate); err != nil {
			return err
		}
	}

	_, ranker, err := inject[Ranker](c, h.logger)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ranker.Rank(req.Event, req.Candidates, req.Current))
}
