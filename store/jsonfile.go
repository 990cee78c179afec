package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Darlinghurst56/taskmaster/domain"
)

// JSONStore implements Store over two JSON files in a state directory,
// matching the project-local config files the dashboard reads directly.
// Every mutation rewrites the affected file.
type JSONStore struct {
	mu          sync.Mutex
	dir         string
	agents      map[string]*domain.Agent
	suggestions map[string]*domain.Suggestion
}

// NewJSONStore creates a store backed by agents.json and suggestions.json
// under dir, loading any existing state.
func NewJSONStore(dir string) (*JSONStore, error) {
	s := &JSONStore{
		dir:         dir,
		agents:      make(map[string]*domain.Agent),
		suggestions: make(map[string]*domain.Suggestion),
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	if err := loadJSON(s.agentsPath(), &s.agents); err != nil {
		return nil, err
	}
	if err := loadJSON(s.suggestionsPath(), &s.suggestions); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) agentsPath() string      { return filepath.Join(s.dir, "agents.json") }
func (s *JSONStore) suggestionsPath() string { return filepath.Join(s.dir, "suggestions.json") }

// Close is a no-op; every mutation is written through.
func (s *JSONStore) Close() error { return nil }

// CreateSuggestion inserts a new suggestion record.
func (s *JSONStore) CreateSuggestion(_ context.Context, sug *domain.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sug
	s.suggestions[sug.ID] = &cp
	return saveJSON(s.suggestionsPath(), s.suggestions)
}

// GetSuggestion retrieves a suggestion by ID.
func (s *JSONStore) GetSuggestion(_ context.Context, id string) (*domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sug, ok := s.suggestions[id]
	if !ok {
		return nil, nil
	}
	cp := *sug
	return &cp, nil
}

// ListSuggestions retrieves suggestions ordered by creation time.
func (s *JSONStore) ListSuggestions(_ context.Context, status domain.SuggestionStatus, limit int) ([]domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Suggestion
	for _, sug := range s.suggestions {
		if status != "" && sug.Status != status {
			continue
		}
		out = append(out, *sug)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateSuggestion updates an existing suggestion record.
func (s *JSONStore) UpdateSuggestion(_ context.Context, sug *domain.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suggestions[sug.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *sug
	s.suggestions[sug.ID] = &cp
	return saveJSON(s.suggestionsPath(), s.suggestions)
}

// CreateAgent inserts a new agent record.
func (s *JSONStore) CreateAgent(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; ok {
		return fmt.Errorf("agent %q already registered: %w", a.ID, domain.ErrConflict)
	}
	cp := *a
	s.agents[a.ID] = &cp
	return saveJSON(s.agentsPath(), s.agents)
}

// GetAgent retrieves an agent by ID.
func (s *JSONStore) GetAgent(_ context.Context, id string) (*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// ListAgents lists all agents ordered by registration time.
func (s *JSONStore) ListAgents(_ context.Context) ([]domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

// UpdateAgent updates an existing agent record.
func (s *JSONStore) UpdateAgent(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *a
	s.agents[a.ID] = &cp
	return saveJSON(s.agentsPath(), s.agents)
}

// DeleteAgent removes an agent record.
func (s *JSONStore) DeleteAgent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.agents, id)
	return saveJSON(s.agentsPath(), s.agents)
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
