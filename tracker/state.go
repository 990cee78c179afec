package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Darlinghurst56/taskmaster/domain"
)

// load reads persisted tracker state. A missing file is a clean start.
func (t *Tracker) load() error {
	if t.opts.StatePath == "" {
		return nil
	}

	data, err := os.ReadFile(t.opts.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading tracker state: %w", err)
	}

	var servers map[string]*domain.TrackedServer
	if err := json.Unmarshal(data, &servers); err != nil {
		return fmt.Errorf("parsing tracker state: %w", err)
	}

	t.mu.Lock()
	t.servers = servers
	if t.servers == nil {
		t.servers = make(map[string]*domain.TrackedServer)
	}
	t.mu.Unlock()
	return nil
}

// save writes the full in-memory state to the state file.
func (t *Tracker) save() error {
	if t.opts.StatePath == "" {
		return nil
	}

	t.mu.Lock()
	data, err := json.MarshalIndent(t.servers, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(t.opts.StatePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(t.opts.StatePath, data, 0644)
}
