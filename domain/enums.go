// Package domain defines the core domain models for the coordination service.
package domain

// AgentStatus represents the lifecycle status of a registered agent.
type AgentStatus string

const (
	AgentStatusAvailable AgentStatus = "available"
	AgentStatusWorking   AgentStatus = "working"
	AgentStatusIdle      AgentStatus = "idle"
	AgentStatusOffline   AgentStatus = "offline"
	AgentStatusError     AgentStatus = "error"
)

// ValidAgentStatus reports whether s is a known agent status.
func ValidAgentStatus(s AgentStatus) bool {
	switch s {
	case AgentStatusAvailable, AgentStatusWorking, AgentStatusIdle, AgentStatusOffline, AgentStatusError:
		return true
	}
	return false
}

// SuggestionStatus represents the status of a task-assignment suggestion.
// Suggestions move pending -> approved or pending -> rejected and never
// change again after that.
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "pending"
	SuggestionStatusApproved SuggestionStatus = "approved"
	SuggestionStatusRejected SuggestionStatus = "rejected"
)

// Terminal reports whether the status is a final decision.
func (s SuggestionStatus) Terminal() bool {
	return s == SuggestionStatusApproved || s == SuggestionStatusRejected
}

// ServerStatus represents the observed state of a tracked local process.
type ServerStatus string

const (
	ServerStatusStarting ServerStatus = "starting"
	ServerStatusRunning  ServerStatus = "running"
	ServerStatusStopping ServerStatus = "stopping"
	ServerStatusStopped  ServerStatus = "stopped"
	ServerStatusCrashed  ServerStatus = "crashed"
	ServerStatusUnknown  ServerStatus = "unknown"
)

// EventType identifies a coordination event pushed to dashboard clients.
type EventType string

const (
	EventSuggestionCreated  EventType = "suggestion_created"
	EventSuggestionApproved EventType = "suggestion_approved"
	EventSuggestionRejected EventType = "suggestion_rejected"
	EventAgentRegistered    EventType = "agent_registered"
	EventAgentStatusChanged EventType = "agent_status_changed"
	EventServerStatusChanged EventType = "server_status_changed"
)
