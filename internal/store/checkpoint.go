package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileCheckpoint stores the resume pointer as a small JSON file. Writes
// go to a temp file in the same directory followed by a rename, so a
// crash never leaves a corrupt or partially written checkpoint behind.
type FileCheckpoint struct {
	path string
	now  func() time.Time
}

// NewFileCheckpoint returns a checkpoint store rooted at path, creating
// the parent directory when needed.
func NewFileCheckpoint(path string) (*FileCheckpoint, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create checkpoint dir %s: %w", dir, err)
		}
	}
	return &FileCheckpoint{path: path, now: time.Now}, nil
}

// Save overwrites the checkpoint with id and the current timestamp.
func (c *FileCheckpoint) Save(id string) error {
	payload, err := json.Marshal(Checkpoint{
		LastProcessed: id,
		Timestamp:     c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit checkpoint %s: %w", c.path, err)
	}
	return nil
}

// Load reads the checkpoint. A missing file yields the zero Checkpoint
// and no error; that is the normal state before any crawl has run.
func (c *FileCheckpoint) Load() (Checkpoint, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoint{}, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint %s: %w", c.path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", c.path, err)
	}
	return cp, nil
}
