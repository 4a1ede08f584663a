package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"OilSentinel/internal/model"
)

// Load reads the poll state from a JSON file. Returns a zero state if the
// file doesn't exist (first run).
func Load(filePath string) (*model.PollState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PollState{}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var state model.PollState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &state, nil
}

// Save writes the poll state to a JSON file, creating the parent directory
// if needed.
func Save(filePath string, state *model.PollState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
