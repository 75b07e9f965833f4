package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileArchiver writes snapshots into a local directory.
type FileArchiver struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileArchiver creates the directory if needed.
func NewFileArchiver(baseDir string, log *slog.Logger) (*FileArchiver, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileArchiver{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Put writes data to baseDir/name, replacing any previous file of that name.
func (a *FileArchiver) Put(ctx context.Context, name string, data []byte) (string, error) {
	filePath := filepath.Join(a.baseDir, filepath.Base(name))

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	a.log.Debug("Archived snapshot to file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))
	return filePath, nil
}

// Available checks if the archive directory exists.
func (a *FileArchiver) Available(ctx context.Context) bool {
	_, err := os.Stat(a.baseDir)
	if err != nil {
		a.log.Debug("File archive unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this archive.
func (a *FileArchiver) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(a.baseDir))
}

// LocationURI returns the URI that identifies this archive.
func (a *FileArchiver) LocationURI() string {
	return a.locationURI
}
