// Package tracker records local development server processes and polls them
// for liveness.
package tracker

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/Darlinghurst56/taskmaster/domain"
)

// Publisher pushes tracker events to connected dashboard clients.
type Publisher interface {
	BroadcastJSON(v interface{}) error
}

// Options configures a Tracker.
type Options struct {
	// StatePath is the JSON state file. Empty disables persistence.
	StatePath string
	// MonitorInterval is the liveness poll interval.
	MonitorInterval time.Duration
	// HealthInterval is the re-probe interval for running servers.
	HealthInterval time.Duration
	// PersistInterval is the periodic save interval.
	PersistInterval time.Duration
	// Prober overrides the default process prober.
	Prober Prober
	// Publisher receives status-change events. May be nil.
	Publisher Publisher
}

// maxHealthFailures is the consecutive-failure count that forces a running
// server to crashed.
const maxHealthFailures = 3

// Tracker is bookkeeping for locally spawned server processes.
type Tracker struct {
	mu      sync.Mutex
	servers map[string]*domain.TrackedServer

	opts   Options
	prober Prober

	stopCh chan struct{}
	done   chan struct{}
}

// RegisterRequest carries the fields for a new tracked server.
type RegisterRequest struct {
	PID        int    `json:"pid"`
	Port       int    `json:"port"`
	ServerType string `json:"serverType,omitempty"`
}

// New creates a tracker, loading persisted state when a state path is set.
func New(opts Options) (*Tracker, error) {
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = 5 * time.Second
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = 30 * time.Second
	}
	if opts.PersistInterval <= 0 {
		opts.PersistInterval = 30 * time.Second
	}

	t := &Tracker{
		servers: make(map[string]*domain.TrackedServer),
		opts:    opts,
		prober:  opts.Prober,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	if t.prober == nil {
		t.prober = ProcessProber{}
	}

	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Register creates a tracked record with status starting. Registrations are
// not de-duplicated: the same pid/port pair yields a second record with a
// distinct composite id.
func (t *Tracker) Register(req RegisterRequest) (*domain.TrackedServer, error) {
	if req.PID <= 0 {
		return nil, fmt.Errorf("pid is required: %w", domain.ErrValidation)
	}
	if req.Port <= 0 {
		return nil, fmt.Errorf("port is required: %w", domain.ErrValidation)
	}

	now := time.Now()
	server := &domain.TrackedServer{
		ID:         fmt.Sprintf("%d-%d-%d", req.PID, req.Port, now.UnixNano()),
		PID:        req.PID,
		Port:       req.Port,
		ServerType: req.ServerType,
		Status:     domain.ServerStatusStarting,
		StatusHistory: []domain.StatusChange{
			{Status: domain.ServerStatusStarting, Reason: "registered", Timestamp: now},
		},
		RegisteredAt: now,
	}

	t.mu.Lock()
	t.servers[server.ID] = server
	cp := *server
	t.mu.Unlock()

	log.Printf("Server %s registered (pid %d, port %d)", server.ID, req.PID, req.Port)
	t.publish(&cp)
	return &cp, nil
}

// Get retrieves a tracked server by id, pid or port.
func (t *Tracker) Get(key string) (*domain.TrackedServer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	server := t.find(key)
	if server == nil {
		return nil, fmt.Errorf("server %q: %w", key, domain.ErrNotFound)
	}
	cp := *server
	return &cp, nil
}

// List returns all tracked servers.
func (t *Tracker) List() []domain.TrackedServer {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.TrackedServer, 0, len(t.servers))
	for _, s := range t.servers {
		out = append(out, *s)
	}
	return out
}

// UpdateStatus applies an explicit status transition, appending to the
// history and updating derived metrics.
func (t *Tracker) UpdateStatus(key string, status domain.ServerStatus, reason string) (*domain.TrackedServer, error) {
	switch status {
	case domain.ServerStatusStarting, domain.ServerStatusRunning, domain.ServerStatusStopping,
		domain.ServerStatusStopped, domain.ServerStatusCrashed, domain.ServerStatusUnknown:
	default:
		return nil, fmt.Errorf("unknown server status %q: %w", status, domain.ErrValidation)
	}

	t.mu.Lock()
	server := t.find(key)
	if server == nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("server %q: %w", key, domain.ErrNotFound)
	}
	t.transition(server, status, reason)
	cp := *server
	t.mu.Unlock()

	t.publish(&cp)
	return &cp, nil
}

// Unregister removes a tracked server.
func (t *Tracker) Unregister(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	server := t.find(key)
	if server == nil {
		return fmt.Errorf("server %q: %w", key, domain.ErrNotFound)
	}
	delete(t.servers, server.ID)
	return nil
}

// Start launches the monitoring, health-check and persistence loops.
func (t *Tracker) Start(ctx context.Context) {
	go t.loop(ctx)
}

// Stop halts the loops and flushes state to disk.
func (t *Tracker) Stop() {
	close(t.stopCh)
	<-t.done
	if err := t.save(); err != nil {
		log.Printf("ERROR: failed to flush tracker state: %v", err)
	}
}

func (t *Tracker) loop(ctx context.Context) {
	defer close(t.done)

	monitor := time.NewTicker(t.opts.MonitorInterval)
	defer monitor.Stop()
	health := time.NewTicker(t.opts.HealthInterval)
	defer health.Stop()
	persist := time.NewTicker(t.opts.PersistInterval)
	defer persist.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-monitor.C:
			t.CheckProcesses()
		case <-health.C:
			t.HealthCheck()
		case <-persist.C:
			if err := t.save(); err != nil {
				log.Printf("ERROR: failed to persist tracker state: %v", err)
			}
		}
	}
}

// CheckProcesses runs one monitoring tick: a zero-signal probe per record.
// Dead processes transition to crashed; crashed processes that reappear are
// treated as recovered and go straight back to running.
func (t *Tracker) CheckProcesses() {
	t.mu.Lock()
	var changed []domain.TrackedServer
	now := time.Now()
	for _, server := range t.servers {
		alive := t.prober.Alive(server.PID)
		server.LastChecked = &now

		switch {
		case !alive && server.Status != domain.ServerStatusStopped && server.Status != domain.ServerStatusCrashed:
			t.transition(server, domain.ServerStatusCrashed, "process not found")
			changed = append(changed, *server)
		case alive && server.Status == domain.ServerStatusCrashed:
			t.transition(server, domain.ServerStatusRunning, "process recovered")
			changed = append(changed, *server)
		}
	}
	t.mu.Unlock()

	for i := range changed {
		log.Printf("Monitor: server %s is now %s", changed[i].ID, changed[i].Status)
		t.publish(&changed[i])
	}
}

// HealthCheck re-probes running servers. Three consecutive failures force
// a transition to crashed.
func (t *Tracker) HealthCheck() {
	t.mu.Lock()
	var changed []domain.TrackedServer
	for _, server := range t.servers {
		if server.Status != domain.ServerStatusRunning {
			continue
		}

		if t.prober.Alive(server.PID) {
			server.ConsecutiveFailures = 0
			continue
		}

		server.ConsecutiveFailures++
		if server.ConsecutiveFailures >= maxHealthFailures {
			t.transition(server, domain.ServerStatusCrashed,
				fmt.Sprintf("%d consecutive health check failures", server.ConsecutiveFailures))
			changed = append(changed, *server)
		}
	}
	t.mu.Unlock()

	for i := range changed {
		log.Printf("Health: server %s is now %s", changed[i].ID, changed[i].Status)
		t.publish(&changed[i])
	}
}

// transition applies a status change and updates derived metrics. Caller
// holds the lock.
func (t *Tracker) transition(server *domain.TrackedServer, status domain.ServerStatus, reason string) {
	prev := server.Status
	if prev == status {
		return
	}

	now := time.Now()
	server.Status = status
	server.StatusHistory = append(server.StatusHistory, domain.StatusChange{
		Status:    status,
		Reason:    reason,
		Timestamp: now,
	})
	server.Metrics.StatusChanges++
	server.Metrics.UptimeMs = now.Sub(server.RegisteredAt).Milliseconds()

	if status == domain.ServerStatusCrashed {
		server.Metrics.CrashCount++
	}
	if prev == domain.ServerStatusCrashed && status == domain.ServerStatusRunning {
		server.Metrics.RestartCount++
	}
	if status != domain.ServerStatusRunning {
		server.ConsecutiveFailures = 0
	}
}

// find resolves a lookup key against id first, then pid, then port. Caller
// holds the lock.
func (t *Tracker) find(key string) *domain.TrackedServer {
	if server, ok := t.servers[key]; ok {
		return server
	}

	n, err := strconv.Atoi(key)
	if err != nil {
		return nil
	}
	for _, server := range t.servers {
		if server.PID == n {
			return server
		}
	}
	for _, server := range t.servers {
		if server.Port == n {
			return server
		}
	}
	return nil
}

func (t *Tracker) publish(server *domain.TrackedServer) {
	if t.opts.Publisher == nil {
		return
	}
	event := domain.Event{
		Type:    domain.EventServerStatusChanged,
		Ts:      time.Now().UnixMilli(),
		Payload: server,
	}
	if err := t.opts.Publisher.BroadcastJSON(event); err != nil {
		log.Printf("WARN: failed to broadcast server event: %v", err)
	}
}
