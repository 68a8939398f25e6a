package handlers

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/review"
)

// Reviewer applies human review actions to match decisions
type Reviewer interface {
	ListForEvent(ctx context.Context, eventID string) ([]models.MatchDecision, error)
	ListQueue(ctx context.Context, status models.MatchDecisionStatus, limit int) ([]models.MatchDecision, error)
	Confirm(ctx context.Context, id string, req models.ReviewDecisionRequest) (*models.MatchDecision, error)
	Reject(ctx context.Context, id string, req models.ReviewDecisionRequest) (*models.MatchDecision, error)
	Pin(ctx context.Context, eventID string, req review.PinRequest) (*models.MatchDecision, error)
}

// DecisionHandler serves the decision review endpoints
type DecisionHandler struct {
	logger ectologger.Logger
}

func NewDecisionHandler(logger ectologger.Logger) *DecisionHandler {
	return &DecisionHandler{logger: logger}
}

// RegisterRoutes registers decision routes
func (h *DecisionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/events/:event_id/decisions", h.ListForEvent)
	g.POST("/events/:event_id/decisions/pin", h.Pin)
	g.GET("/decisions", h.ListQueue)
	g.POST("/decisions/:id/confirm", h.Confirm)
	g.POST("/decisions/:id/reject", h.Reject)
}

func (h *DecisionHandler) ListForEvent(c echo.Context) error {
	eventID, err := requireParam(c, "event_id")
	if err != nil {
		return err
	}

	ctx, reviewer, err := inject[Reviewer](c, h.logger)
	if err != nil {
		return err
	}

	decisions, err := reviewer.ListForEvent(ctx, eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decisions)
}

// ListQueue lists decisions by status, pending by default
func (h *DecisionHandler) ListQueue(c echo.Context) error {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		return err
	}

	ctx, reviewer, err := inject[Reviewer](c, h.logger)
	if err != nil {
		return err
	}

	status := models.MatchDecisionStatus(c.QueryParam("status"))
	decisions, err := reviewer.ListQueue(ctx, status, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decisions)
}

func (h *DecisionHandler) Confirm(c echo.Context) error {
	return h.review(c, Reviewer.Confirm)
}

func (h *DecisionHandler) Reject(c echo.Context) error {
	return h.review(c, Reviewer.Reject)
}

func (h *DecisionHandler) Pin(c echo.Context) error {
	eventID, err := requireParam(c, "event_id")
	if err != nil {
		return err
	}

	var req review.PinRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, reviewer, err := inject[Reviewer](c, h.logger)
	if err != nil {
		return err
	}

	decision, err := reviewer.Pin(ctx, eventID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decision)
}

func (h *DecisionHandler) review(c echo.Context, apply func(Reviewer, context.Context, string, models.ReviewDecisionRequest) (*models.MatchDecision, error)) error {
	id, err := requireParam(c, "id")
	if err != nil {
		return err
	}

	var req models.ReviewDecisionRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}
	ctx, reviewer, err := inject[Reviewer](c, h.logger)
	if err != nil {
		return err
	}
	if req.Reviewer == "" {
		req.Reviewer = appctx.GetReviewer(ctx)
	}

	decision, err := apply(reviewer, ctx, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decision)
}
