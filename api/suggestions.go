package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/workflow"
)

// PendingSuggestions lists suggestions awaiting a decision.
// GET /api/coordination/suggestions/pending
func (h *Handler) PendingSuggestions(c echo.Context) error {
	suggestions, err := h.workflow.Pending(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"count":       len(suggestions),
		"suggestions": suggestions,
	})
}

// ListSuggestions lists suggestions with optional status filter and limit.
// GET /api/coordination/suggestions?status=&limit=
func (h *Handler) ListSuggestions(c echo.Context) error {
	ctx := c.Request().Context()

	status := domain.SuggestionStatus(c.QueryParam("status"))
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		limit = n
	}

	all, err := h.workflow.List(ctx, "", 0)
	if err != nil {
		return respondError(c, err)
	}

	filtered := all
	if status != "" {
		filtered = nil
		for _, sug := range all {
			if sug.Status == status {
				filtered = append(filtered, sug)
			}
		}
	}

	returned := filtered
	if limit > 0 && len(returned) > limit {
		returned = returned[:limit]
	}
	if returned == nil {
		returned = []domain.Suggestion{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"total":       len(all),
		"filtered":    len(filtered),
		"returned":    len(returned),
		"suggestions": returned,
	})
}

// CreateSuggestion creates a new task-assignment suggestion.
// POST /api/coordination/suggestions
func (h *Handler) CreateSuggestion(c echo.Context) error {
	var req workflow.CreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sug, err := h.workflow.CreateSuggestion(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success":    true,
		"suggestion": sug,
	})
}

// GetSuggestion retrieves a single suggestion.
// GET /api/coordination/suggestions/:id
func (h *Handler) GetSuggestion(c echo.Context) error {
	sug, err := h.workflow.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"suggestion": sug,
	})
}

type decisionRequest struct {
	Comment    string `json:"comment,omitempty"`
	ApprovedBy string `json:"approvedBy,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RejectedBy string `json:"rejectedBy,omitempty"`
}

// ApproveSuggestion approves a pending suggestion.
// POST /api/coordination/suggestions/:id/approve
func (h *Handler) ApproveSuggestion(c echo.Context) error {
	id := c.Param("id")

	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sug, err := h.workflow.Approve(c.Request().Context(), id, req.Comment, req.ApprovedBy)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    fmt.Sprintf("Suggestion %s approved", id),
		"suggestion": sug,
	})
}

// RejectSuggestion rejects a pending suggestion. The reason is required.
// POST /api/coordination/suggestions/:id/reject
func (h *Handler) RejectSuggestion(c echo.Context) error {
	id := c.Param("id")

	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sug, err := h.workflow.Reject(c.Request().Context(), id, req.Reason, req.RejectedBy)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    fmt.Sprintf("Suggestion %s rejected", id),
		"suggestion": sug,
	})
}

type bulkRequest struct {
	SuggestionIDs []string `json:"suggestionIds"`
	Comment       string   `json:"comment,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	DecidedBy     string   `json:"decidedBy,omitempty"`
}

// BulkDecide applies approve or reject per id. Partial failure is expected
// and reported per id; the batch never aborts early.
// POST /api/coordination/suggestions/bulk/:action
func (h *Handler) BulkDecide(c echo.Context) error {
	action := c.Param("action")

	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.SuggestionIDs) == 0 {
		return badRequest(c, "suggestionIds is required")
	}

	ctx := c.Request().Context()
	var results []workflow.BulkResult
	switch action {
	case "approve":
		results = h.workflow.BulkApprove(ctx, req.SuggestionIDs, req.Comment, req.DecidedBy)
	case "reject":
		if req.Reason == "" {
			return badRequest(c, "reason is required for bulk reject")
		}
		results = h.workflow.BulkReject(ctx, req.SuggestionIDs, req.Reason, req.DecidedBy)
	default:
		return badRequest(c, "action must be approve or reject")
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"action":    action,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
		"results":   results,
	})
}

// Stats returns aggregate suggestion counters.
// GET /api/coordination/stats
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.workflow.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}
