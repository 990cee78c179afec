// Package registry tracks which agents exist, their declared capabilities
// and their current status.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/store"
)

// WorkingCopyEntry is one agent's overlay record from the working-copy file.
// Fields present here shadow the registry record during in-flight
// coordination; absent agents fall back to the stored record.
type WorkingCopyEntry struct {
	Status        domain.AgentStatus `json:"status,omitempty"`
	CurrentTask   string             `json:"currentTask,omitempty"`
	AssignedTasks []string           `json:"assignedTasks,omitempty"`
}

// Registry provides agent bookkeeping on top of a Store.
type Registry struct {
	store           store.Store
	workingCopyPath string
}

// New creates a registry. workingCopyPath may be empty, in which case List
// never applies an overlay.
func New(s store.Store, workingCopyPath string) *Registry {
	return &Registry{store: s, workingCopyPath: workingCopyPath}
}

// Register creates a new agent record. Registration fails with a conflict
// if the id is already present. An empty initial status defaults to
// available; an empty capability set defaults to the role table entry.
func (r *Registry) Register(ctx context.Context, id string, capabilities []string, initialStatus domain.AgentStatus) (*domain.Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required: %w", domain.ErrValidation)
	}
	if initialStatus == "" {
		initialStatus = domain.AgentStatusAvailable
	}
	if !domain.ValidAgentStatus(initialStatus) {
		return nil, fmt.Errorf("unknown agent status %q: %w", initialStatus, domain.ErrValidation)
	}

	role := RoleForAgent(id)
	if len(capabilities) == 0 {
		capabilities = RoleCapabilities[role]
	}

	now := time.Now()
	agent := &domain.Agent{
		ID:           id,
		Role:         role,
		Capabilities: capabilities,
		Status:       initialStatus,
		LastUpdated:  now,
		RegisteredAt: now,
	}
	if err := r.store.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// EnsureRegistered returns the agent record for id, lazily creating one
// with role-derived default capabilities when absent. Used by the approval
// workflow so agents do not have to pre-register before being suggested.
func (r *Registry) EnsureRegistered(ctx context.Context, id string) (*domain.Agent, bool, error) {
	agent, err := r.store.GetAgent(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if agent != nil {
		return agent, false, nil
	}

	agent, err = r.Register(ctx, id, nil, domain.AgentStatusAvailable)
	if err != nil {
		return nil, false, err
	}
	return agent, true, nil
}

// Get retrieves an agent record.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := r.store.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, fmt.Errorf("agent %q: %w", id, domain.ErrNotFound)
	}
	return agent, nil
}

// UpdateStatus mutates an agent's status and current task.
func (r *Registry) UpdateStatus(ctx context.Context, id string, status domain.AgentStatus, currentTask string) (*domain.Agent, error) {
	if !domain.ValidAgentStatus(status) {
		return nil, fmt.Errorf("unknown agent status %q: %w", status, domain.ErrValidation)
	}

	agent, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	agent.Status = status
	agent.CurrentTask = currentTask
	agent.LastUpdated = time.Now()
	if err := r.store.UpdateAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// Heartbeat records that an agent is alive.
func (r *Registry) Heartbeat(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	agent.LastHeartbeat = &now
	if err := r.store.UpdateAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// AssignTask appends a task to an agent's assignment list.
func (r *Registry) AssignTask(ctx context.Context, id, taskID string) (*domain.Agent, error) {
	agent, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, t := range agent.AssignedTasks {
		if t == taskID {
			return agent, nil
		}
	}
	agent.AssignedTasks = append(agent.AssignedTasks, taskID)
	agent.LastUpdated = time.Now()
	if err := r.store.UpdateAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// List returns all agents, merged with the working-copy overlay when one is
// present. Overlay fields win for status, current task and assigned tasks.
func (r *Registry) List(ctx context.Context) ([]domain.Agent, error) {
	agents, err := r.store.ListAgents(ctx)
	if err != nil {
		return nil, err
	}

	overlay := r.loadWorkingCopy()
	if len(overlay) == 0 {
		return agents, nil
	}

	for i := range agents {
		entry, ok := overlay[agents[i].ID]
		if !ok {
			continue
		}
		if entry.Status != "" {
			agents[i].Status = entry.Status
		}
		if entry.CurrentTask != "" {
			agents[i].CurrentTask = entry.CurrentTask
		}
		if entry.AssignedTasks != nil {
			agents[i].AssignedTasks = entry.AssignedTasks
		}
	}
	return agents, nil
}

// Unregister removes an agent record.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	if err := r.store.DeleteAgent(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("agent %q: %w", id, domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// loadWorkingCopy reads the overlay file fresh on each call: the file is
// short-lived and rewritten by coordination scripts outside this process.
func (r *Registry) loadWorkingCopy() map[string]WorkingCopyEntry {
	if r.workingCopyPath == "" {
		return nil
	}

	data, err := os.ReadFile(r.workingCopyPath)
	if err != nil {
		return nil
	}

	var overlay map[string]WorkingCopyEntry
	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil
	}
	return overlay
}
