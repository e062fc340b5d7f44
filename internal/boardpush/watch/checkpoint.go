package watch

import (
	"os"
	"path/filepath"
	"strings"
)

// Checkpoint persists the clock value of the last confirmed publish so a
// restart does not re-push content the chain already has.
type Checkpoint interface {
	Load() (clock string, ok bool, err error)
	Save(clock string) error
}

type FileCheckpoint struct {
	path string
}

func NewFileCheckpoint(path string) (*FileCheckpoint, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileCheckpoint{path: path}, nil
}

func (c *FileCheckpoint) Load() (string, bool, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	clock := strings.TrimSpace(string(b))
	if clock == "" {
		return "", false, nil
	}
	return clock, true, nil
}

func (c *FileCheckpoint) Save(clock string) error {
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(clock+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
