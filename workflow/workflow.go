// Package workflow orchestrates suggestion creation, approval and rejection.
package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/policy"
	"github.com/Darlinghurst56/taskmaster/registry"
	"github.com/Darlinghurst56/taskmaster/store"
)

// DefaultSuggestedBy is the originator recorded when a suggestion does not
// name one.
const DefaultSuggestedBy = "orchestrator"

// Publisher pushes coordination events to connected dashboard clients.
type Publisher interface {
	BroadcastJSON(v interface{}) error
}

// Workflow coordinates the suggestion store, the agent registry and the
// admission policy.
type Workflow struct {
	store     store.Store
	registry  *registry.Registry
	policy    *policy.Engine
	publisher Publisher
}

// New creates a workflow. policy and publisher may be nil; without a policy
// every suggestion requires human approval, and without a publisher events
// are dropped.
func New(s store.Store, r *registry.Registry, p *policy.Engine, pub Publisher) *Workflow {
	return &Workflow{store: s, registry: r, policy: p, publisher: pub}
}

// CreateRequest carries the fields for a new suggestion.
type CreateRequest struct {
	TaskID      string `json:"taskId"`
	TargetAgent string `json:"targetAgent"`
	Reasoning   string `json:"reasoning,omitempty"`
	SuggestedBy string `json:"suggestedBy,omitempty"`
}

// CreateSuggestion appends a new suggestion. The admission policy runs at
// creation time: "allow" decisions are approved on the spot by "policy",
// "block" decisions are recorded as rejected, and everything else stays
// pending for a human.
func (w *Workflow) CreateSuggestion(ctx context.Context, req CreateRequest) (*domain.Suggestion, error) {
	if req.TaskID == "" {
		return nil, fmt.Errorf("taskId is required: %w", domain.ErrValidation)
	}
	if req.TargetAgent == "" {
		return nil, fmt.Errorf("targetAgent is required: %w", domain.ErrValidation)
	}

	suggestedBy := req.SuggestedBy
	if suggestedBy == "" {
		suggestedBy = DefaultSuggestedBy
	}

	sug := &domain.Suggestion{
		ID:          "sug_" + uuid.New().String()[:8],
		TaskID:      req.TaskID,
		TargetAgent: req.TargetAgent,
		Reasoning:   req.Reasoning,
		SuggestedBy: suggestedBy,
		Status:      domain.SuggestionStatusPending,
		Timestamp:   time.Now(),
	}

	decision := policy.DecisionRequireApproval
	if w.policy != nil {
		var err error
		decision, err = w.policy.Evaluate(ctx, policy.Input{
			TaskID:      sug.TaskID,
			TargetAgent: sug.TargetAgent,
			SuggestedBy: sug.SuggestedBy,
			Reasoning:   sug.Reasoning,
		})
		if err != nil {
			log.Printf("WARN: policy evaluation failed, requiring approval: %v", err)
			decision = policy.DecisionRequireApproval
		}
	}

	switch decision {
	case policy.DecisionAllow:
		now := time.Now()
		sug.Status = domain.SuggestionStatusApproved
		sug.ApprovedAt = &now
		sug.ApprovedBy = "policy"
		if err := w.provisionTarget(ctx, sug); err != nil {
			return nil, err
		}
	case policy.DecisionBlock:
		now := time.Now()
		sug.Status = domain.SuggestionStatusRejected
		sug.RejectedAt = &now
		sug.RejectedBy = "policy"
		sug.Reason = "blocked by policy"
	}

	if err := w.store.CreateSuggestion(ctx, sug); err != nil {
		return nil, fmt.Errorf("failed to create suggestion: %w", err)
	}

	w.publish(domain.EventSuggestionCreated, sug)
	return sug, nil
}

// Approve marks a pending suggestion approved and lazily provisions the
// target agent if it has not registered yet.
func (w *Workflow) Approve(ctx context.Context, id, comment, approvedBy string) (*domain.Suggestion, error) {
	sug, err := w.getPending(ctx, id)
	if err != nil {
		return nil, err
	}

	if approvedBy == "" {
		approvedBy = "user"
	}

	if err := w.provisionTarget(ctx, sug); err != nil {
		return nil, err
	}

	now := time.Now()
	sug.Status = domain.SuggestionStatusApproved
	sug.ApprovedAt = &now
	sug.ApprovedBy = approvedBy
	sug.Comment = comment
	if err := w.store.UpdateSuggestion(ctx, sug); err != nil {
		return nil, fmt.Errorf("failed to update suggestion: %w", err)
	}

	w.publish(domain.EventSuggestionApproved, sug)
	return sug, nil
}

// Reject marks a pending suggestion rejected. A reason is required.
func (w *Workflow) Reject(ctx context.Context, id, reason, rejectedBy string) (*domain.Suggestion, error) {
	if reason == "" {
		return nil, fmt.Errorf("reason is required: %w", domain.ErrValidation)
	}

	sug, err := w.getPending(ctx, id)
	if err != nil {
		return nil, err
	}

	if rejectedBy == "" {
		rejectedBy = "user"
	}

	now := time.Now()
	sug.Status = domain.SuggestionStatusRejected
	sug.RejectedAt = &now
	sug.RejectedBy = rejectedBy
	sug.Reason = reason
	if err := w.store.UpdateSuggestion(ctx, sug); err != nil {
		return nil, fmt.Errorf("failed to update suggestion: %w", err)
	}

	w.publish(domain.EventSuggestionRejected, sug)
	return sug, nil
}

// BulkResult reports the outcome of one item in a bulk operation.
type BulkResult struct {
	ID         string             `json:"id"`
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
	Suggestion *domain.Suggestion `json:"suggestion,omitempty"`
}

// BulkApprove applies Approve per id, collecting individual results rather
// than failing the batch. One bad id does not abort the rest.
func (w *Workflow) BulkApprove(ctx context.Context, ids []string, comment, approvedBy string) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		sug, err := w.Approve(ctx, id, comment, approvedBy)
		if err != nil {
			results = append(results, BulkResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{ID: id, Success: true, Suggestion: sug})
	}
	return results
}

// BulkReject applies Reject per id, collecting individual results.
func (w *Workflow) BulkReject(ctx context.Context, ids []string, reason, rejectedBy string) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		sug, err := w.Reject(ctx, id, reason, rejectedBy)
		if err != nil {
			results = append(results, BulkResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{ID: id, Success: true, Suggestion: sug})
	}
	return results
}

// Get retrieves a suggestion by id.
func (w *Workflow) Get(ctx context.Context, id string) (*domain.Suggestion, error) {
	sug, err := w.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if sug == nil {
		return nil, fmt.Errorf("suggestion %q: %w", id, domain.ErrNotFound)
	}
	return sug, nil
}

// List retrieves suggestions, optionally filtered by status and capped at
// limit.
func (w *Workflow) List(ctx context.Context, status domain.SuggestionStatus, limit int) ([]domain.Suggestion, error) {
	return w.store.ListSuggestions(ctx, status, limit)
}

// Pending retrieves all pending suggestions.
func (w *Workflow) Pending(ctx context.Context) ([]domain.Suggestion, error) {
	return w.store.ListSuggestions(ctx, domain.SuggestionStatusPending, 0)
}

// Stats computes aggregate suggestion counters. The approval rate is
// approved/(approved+rejected)*100 and 0 when nothing has been decided yet.
func (w *Workflow) Stats(ctx context.Context) (*domain.Stats, error) {
	suggestions, err := w.store.ListSuggestions(ctx, "", 0)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{Total: len(suggestions)}
	var latencySum float64
	var latencyCount int
	for _, sug := range suggestions {
		switch sug.Status {
		case domain.SuggestionStatusPending:
			stats.Pending++
		case domain.SuggestionStatusApproved:
			stats.Approved++
			if sug.ApprovedAt != nil {
				latencySum += sug.ApprovedAt.Sub(sug.Timestamp).Seconds()
				latencyCount++
			}
		case domain.SuggestionStatusRejected:
			stats.Rejected++
		}
	}

	if decided := stats.Approved + stats.Rejected; decided > 0 {
		stats.ApprovalRate = float64(stats.Approved) / float64(decided) * 100
	}
	if latencyCount > 0 {
		stats.AvgApprovalTimeSeconds = latencySum / float64(latencyCount)
	}
	return stats, nil
}

// getPending fetches a suggestion and enforces the terminal-state guard.
func (w *Workflow) getPending(ctx context.Context, id string) (*domain.Suggestion, error) {
	sug, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sug.Status.Terminal() {
		return nil, fmt.Errorf("suggestion %q is already %s: %w", id, sug.Status, domain.ErrConflict)
	}
	return sug, nil
}

// provisionTarget makes sure the target agent exists and holds the task.
func (w *Workflow) provisionTarget(ctx context.Context, sug *domain.Suggestion) error {
	agent, created, err := w.registry.EnsureRegistered(ctx, sug.TargetAgent)
	if err != nil {
		return fmt.Errorf("failed to provision agent %q: %w", sug.TargetAgent, err)
	}
	if created {
		log.Printf("Agent %s auto-registered (role: %s)", agent.ID, agent.Role)
		w.publish(domain.EventAgentRegistered, agent)
	}

	if _, err := w.registry.AssignTask(ctx, sug.TargetAgent, sug.TaskID); err != nil {
		return fmt.Errorf("failed to assign task %q: %w", sug.TaskID, err)
	}
	return nil
}

func (w *Workflow) publish(eventType domain.EventType, payload interface{}) {
	if w.publisher == nil {
		return
	}
	event := domain.Event{Type: eventType, Ts: time.Now().UnixMilli(), Payload: payload}
	if err := w.publisher.BroadcastJSON(event); err != nil {
		log.Printf("WARN: failed to broadcast %s event: %v", eventType, err)
	}
}
