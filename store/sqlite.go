package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Darlinghurst56/taskmaster/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS suggestions (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			target_agent TEXT NOT NULL,
			reasoning TEXT,
			suggested_by TEXT NOT NULL,
			status TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			approved_at DATETIME,
			approved_by TEXT,
			comment TEXT,
			rejected_at DATETIME,
			rejected_by TEXT,
			reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_status ON suggestions(status, timestamp)`,
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			capabilities TEXT,
			status TEXT NOT NULL DEFAULT 'available',
			current_task TEXT,
			assigned_tasks TEXT,
			last_updated DATETIME NOT NULL,
			last_heartbeat DATETIME,
			registered_at DATETIME NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSuggestion inserts a new suggestion record.
func (s *SQLiteStore) CreateSuggestion(ctx context.Context, sug *domain.Suggestion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suggestions (id, task_id, target_agent, reasoning, suggested_by, status, timestamp,
			approved_at, approved_by, comment, rejected_at, rejected_by, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sug.ID, sug.TaskID, sug.TargetAgent, sug.Reasoning, sug.SuggestedBy, sug.Status, sug.Timestamp,
		sug.ApprovedAt, sug.ApprovedBy, sug.Comment, sug.RejectedAt, sug.RejectedBy, sug.Reason)
	return err
}

// GetSuggestion retrieves a suggestion by ID.
func (s *SQLiteStore) GetSuggestion(ctx context.Context, id string) (*domain.Suggestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, target_agent, reasoning, suggested_by, status, timestamp,
			approved_at, approved_by, comment, rejected_at, rejected_by, reason
		 FROM suggestions WHERE id = ?`, id)

	sug, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sug, nil
}

// ListSuggestions retrieves suggestions ordered by creation time.
func (s *SQLiteStore) ListSuggestions(ctx context.Context, status domain.SuggestionStatus, limit int) ([]domain.Suggestion, error) {
	query := `SELECT id, task_id, target_agent, reasoning, suggested_by, status, timestamp,
		approved_at, approved_by, comment, rejected_at, rejected_by, reason FROM suggestions`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY timestamp ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []domain.Suggestion
	for rows.Next() {
		sug, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, *sug)
	}
	return suggestions, rows.Err()
}

// UpdateSuggestion updates an existing suggestion record.
func (s *SQLiteStore) UpdateSuggestion(ctx context.Context, sug *domain.Suggestion) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET status = ?, approved_at = ?, approved_by = ?, comment = ?,
			rejected_at = ?, rejected_by = ?, reason = ? WHERE id = ?`,
		sug.Status, sug.ApprovedAt, sug.ApprovedBy, sug.Comment,
		sug.RejectedAt, sug.RejectedBy, sug.Reason, sug.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateAgent inserts a new agent record. Registration is not idempotent:
// a duplicate id is a conflict.
func (s *SQLiteStore) CreateAgent(ctx context.Context, a *domain.Agent) error {
	existing, err := s.GetAgent(ctx, a.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("agent %q already registered: %w", a.ID, domain.ErrConflict)
	}

	caps, _ := json.Marshal(a.Capabilities)
	tasks, _ := json.Marshal(a.AssignedTasks)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (id, role, capabilities, status, current_task, assigned_tasks, last_updated, last_heartbeat, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Role, string(caps), a.Status, a.CurrentTask, string(tasks), a.LastUpdated, a.LastHeartbeat, a.RegisteredAt)
	return err
}

// GetAgent retrieves an agent by ID.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, role, capabilities, status, current_task, assigned_tasks, last_updated, last_heartbeat, registered_at
		 FROM agents WHERE id = ?`, id)

	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// ListAgents lists all agents.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, capabilities, status, current_task, assigned_tasks, last_updated, last_heartbeat, registered_at
		 FROM agents ORDER BY registered_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *agent)
	}
	return agents, rows.Err()
}

// UpdateAgent updates an existing agent record.
func (s *SQLiteStore) UpdateAgent(ctx context.Context, a *domain.Agent) error {
	caps, _ := json.Marshal(a.Capabilities)
	tasks, _ := json.Marshal(a.AssignedTasks)
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET role = ?, capabilities = ?, status = ?, current_task = ?, assigned_tasks = ?,
			last_updated = ?, last_heartbeat = ? WHERE id = ?`,
		a.Role, string(caps), a.Status, a.CurrentTask, string(tasks), a.LastUpdated, a.LastHeartbeat, a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAgent removes an agent record.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSuggestion(row rowScanner) (*domain.Suggestion, error) {
	var sug domain.Suggestion
	var reasoning, approvedBy, comment, rejectedBy, reason sql.NullString
	var approvedAt, rejectedAt sql.NullTime
	err := row.Scan(&sug.ID, &sug.TaskID, &sug.TargetAgent, &reasoning, &sug.SuggestedBy, &sug.Status,
		&sug.Timestamp, &approvedAt, &approvedBy, &comment, &rejectedAt, &rejectedBy, &reason)
	if err != nil {
		return nil, err
	}
	sug.Reasoning = reasoning.String
	sug.ApprovedBy = approvedBy.String
	sug.Comment = comment.String
	sug.RejectedBy = rejectedBy.String
	sug.Reason = reason.String
	if approvedAt.Valid {
		sug.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		sug.RejectedAt = &rejectedAt.Time
	}
	return &sug, nil
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var caps, currentTask, tasks sql.NullString
	var lastHeartbeat sql.NullTime
	err := row.Scan(&agent.ID, &agent.Role, &caps, &agent.Status, &currentTask, &tasks,
		&agent.LastUpdated, &lastHeartbeat, &agent.RegisteredAt)
	if err != nil {
		return nil, err
	}
	agent.CurrentTask = currentTask.String
	if caps.Valid && caps.String != "" && caps.String != "null" {
		if err := json.Unmarshal([]byte(caps.String), &agent.Capabilities); err != nil {
			return nil, fmt.Errorf("failed to parse capabilities for %s: %w", agent.ID, err)
		}
	}
	if tasks.Valid && tasks.String != "" && tasks.String != "null" {
		if err := json.Unmarshal([]byte(tasks.String), &agent.AssignedTasks); err != nil {
			return nil, fmt.Errorf("failed to parse assigned tasks for %s: %w", agent.ID, err)
		}
	}
	if lastHeartbeat.Valid {
		agent.LastHeartbeat = &lastHeartbeat.Time
	}
	return &agent, nil
}
