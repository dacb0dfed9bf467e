package exporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint records how far an export has progressed. Every id at or below
// LastSeq was either exported or is listed in Gaps.
type Checkpoint struct {
	LastSeq   uint64    `json:"last_seq"`
	Exported  uint64    `json:"exported"`
	Gaps      []Gap     `json:"gaps,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Gap is a sequence id that was missing when later ids were already
// visible. Its writer may still commit, so it is re-read on later runs.
type Gap struct {
	Seq       uint64    `json:"seq"`
	FirstSeen time.Time `json:"first_seen"`
}

// checkpointFile persists a Checkpoint as JSON. The empty path disables it.
type checkpointFile string

func (f checkpointFile) load() (Checkpoint, bool, error) {
	if f == "" {
		return Checkpoint{}, false, nil
	}
	raw, err := os.ReadFile(string(f))
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", f, err)
	}
	return cp, true, nil
}

// save replaces the file atomically, so a crash leaves either the old or the
// new checkpoint.
func (f checkpointFile) save(cp Checkpoint) error {
	if f == "" {
		return nil
	}
	dir := filepath.Dir(string(f))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	raw, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(string(f))+".*")
	if err != nil {
		return fmt.Errorf("create checkpoint tmp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmp.Name(), string(f)); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
