package domain

import "time"

// Agent represents a registered agent and its declared capabilities.
type Agent struct {
	ID            string      `json:"id"`
	Role          string      `json:"role"`
	Capabilities  []string    `json:"capabilities"`
	Status        AgentStatus `json:"status"`
	CurrentTask   string      `json:"currentTask,omitempty"`
	AssignedTasks []string    `json:"assignedTasks,omitempty"`
	LastUpdated   time.Time   `json:"lastUpdated"`
	LastHeartbeat *time.Time  `json:"lastHeartbeat,omitempty"`
	RegisteredAt  time.Time   `json:"registeredAt"`
}

// Suggestion is a proposed task-to-agent assignment awaiting a decision.
// Records are never deleted; terminal suggestions are retained for stats.
type Suggestion struct {
	ID          string           `json:"id"`
	TaskID      string           `json:"taskId"`
	TargetAgent string           `json:"targetAgent"`
	Reasoning   string           `json:"reasoning,omitempty"`
	SuggestedBy string           `json:"suggestedBy"`
	Status      SuggestionStatus `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	ApprovedAt  *time.Time       `json:"approvedAt,omitempty"`
	ApprovedBy  string           `json:"approvedBy,omitempty"`
	Comment     string           `json:"comment,omitempty"`
	RejectedAt  *time.Time       `json:"rejectedAt,omitempty"`
	RejectedBy  string           `json:"rejectedBy,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// StatusChange is one entry in a tracked server's append-only history.
type StatusChange struct {
	Status    ServerStatus `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// ServerMetrics holds derived counters for a tracked server.
type ServerMetrics struct {
	UptimeMs      int64 `json:"uptimeMs"`
	StatusChanges int   `json:"statusChanges"`
	CrashCount    int   `json:"crashCount"`
	RestartCount  int   `json:"restartCount"`
}

// TrackedServer is a locally spawned process monitored by pid/port.
type TrackedServer struct {
	ID                  string         `json:"id"`
	PID                 int            `json:"pid"`
	Port                int            `json:"port"`
	ServerType          string         `json:"serverType,omitempty"`
	Status              ServerStatus   `json:"status"`
	StatusHistory       []StatusChange `json:"statusHistory"`
	Metrics             ServerMetrics  `json:"metrics"`
	ConsecutiveFailures int            `json:"consecutiveFailures"`
	RegisteredAt        time.Time      `json:"registeredAt"`
	LastChecked         *time.Time     `json:"lastChecked,omitempty"`
}

// Stats aggregates suggestion counters for the dashboard.
type Stats struct {
	Total                  int     `json:"total"`
	Pending                int     `json:"pending"`
	Approved               int     `json:"approved"`
	Rejected               int     `json:"rejected"`
	ApprovalRate           float64 `json:"approvalRate"`
	AvgApprovalTimeSeconds float64 `json:"avgApprovalTimeSeconds"`
}

// Event is a coordination event broadcast to connected dashboard clients.
type Event struct {
	Type      EventType   `json:"type"`
	Ts        int64       `json:"ts"`
	Payload   interface{} `json:"payload,omitempty"`
}
