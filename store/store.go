// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/Darlinghurst56/taskmaster/domain"
)

// Store defines the interface for coordination state persistence.
//
// Get methods return (nil, nil) when the record does not exist. Create and
// Update methods return domain.ErrConflict and domain.ErrNotFound
// respectively so callers can map them without backend-specific checks.
type Store interface {
	// Suggestion operations
	CreateSuggestion(ctx context.Context, s *domain.Suggestion) error
	GetSuggestion(ctx context.Context, id string) (*domain.Suggestion, error)
	// ListSuggestions returns suggestions ordered by creation time. An empty
	// status matches every record; limit <= 0 means no limit.
	ListSuggestions(ctx context.Context, status domain.SuggestionStatus, limit int) ([]domain.Suggestion, error)
	UpdateSuggestion(ctx context.Context, s *domain.Suggestion) error

	// Agent operations
	CreateAgent(ctx context.Context, a *domain.Agent) error
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	ListAgents(ctx context.Context) ([]domain.Agent, error)
	UpdateAgent(ctx context.Context, a *domain.Agent) error
	DeleteAgent(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}
