package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// IngestCheckpoint records how far a batch ingest got through its input so an
// interrupted run can resume without re-submitting lines.
type IngestCheckpoint struct {
	// Source is the absolute path of the JSONL file being ingested.
	Source string `json:"source"`

	// Line is the number of input lines fully processed.
	Line int `json:"line"`

	UpdatedAt time.Time `json:"updated_at"`
}

// LoadCheckpoint loads the checkpoint from a target .verity/ingest_checkpoint.json.
// Returns nil, nil if no checkpoint exists.
// If overrideDir is non-empty, it is used instead of the default ~/.verity/ location.
func (m *Manager) LoadCheckpoint(overrideDir string) (*IngestCheckpoint, error) {
	path, err := m.File(overrideDir, CheckpointFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ingest checkpoint: %w", err)
	}

	cp := &IngestCheckpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("parsing ingest checkpoint: %w", err)
	}

	return cp, nil
}

// SaveCheckpoint persists the checkpoint to a target .verity/ingest_checkpoint.json.
func (m *Manager) SaveCheckpoint(cp *IngestCheckpoint, overrideDir string) error {
	if cp == nil {
		return errors.New("cannot save nil ingest checkpoint")
	}

	path, err := m.File(overrideDir, CheckpointFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ingest checkpoint: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing ingest checkpoint: %w", err)
	}

	return nil
}

// ClearCheckpoint removes the checkpoint file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearCheckpoint(overrideDir string) error {
	path, err := m.File(overrideDir, CheckpointFile)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing ingest checkpoint: %w", err)
	}

	return nil
}
