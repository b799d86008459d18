package recordsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrNoArchive is returned when no upload has been archived yet.
var ErrNoArchive = errors.New("no archived upload")

// Archive keeps the raw bytes of the most recent upload of one kind so
// the processed view can be rebuilt without re-uploading the file.
type Archive struct {
	path string
	log  *zap.Logger
}

// NewArchive creates an archive persisting to the given file path.
func NewArchive(path string, log *zap.Logger) *Archive {
	return &Archive{path: path, log: log.Named("archive")}
}

// Save replaces the archived upload.
func (a *Archive) Save(data []byte) error {
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	if err := os.WriteFile(a.path, data, 0o644); err != nil {
		return fmt.Errorf("archive upload to %s: %w", a.path, err)
	}
	a.log.Info("archived upload", zap.String("path", a.path), zap.Int("bytes", len(data)))
	return nil
}

// Load returns the archived upload, or ErrNoArchive when none exists.
func (a *Archive) Load() ([]byte, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoArchive
	}
	if err != nil {
		return nil, fmt.Errorf("read archived upload from %s: %w", a.path, err)
	}
	return data, nil
}
