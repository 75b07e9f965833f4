package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/holder-address-registry/interfaces"
)

// MultiArchiver writes every snapshot to all available archives.
type MultiArchiver struct {
	archives []interfaces.Archiver
	log      *slog.Logger
}

// NewMultiArchiver creates a fan-out archiver.
func NewMultiArchiver(archives []interfaces.Archiver, logger *slog.Logger) *MultiArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiArchiver{
		archives: archives,
		log:      logger,
	}
}

// Put stores data in every available archive. It succeeds when at least one
// archive accepted the snapshot and returns the accepted locations joined by commas.
func (m *MultiArchiver) Put(ctx context.Context, name string, data []byte) (string, error) {
	start := time.Now()
	var locations []string
	var errs []error

	for _, archive := range m.archives {
		if !archive.Available(ctx) {
			m.log.Debug("Archive unavailable", slog.String("archive_name", archive.Name()))
			errs = append(errs, fmt.Errorf("%s: %w", archive.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		location, err := archive.Put(ctx, name, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", archive.Name(), err))
			m.log.Warn("Failed to archive snapshot",
				slog.String("archive_name", archive.Name()),
				"err", err)
			continue
		}
		locations = append(locations, location)
	}

	if len(locations) == 0 {
		m.log.Error("All archives failed to store snapshot",
			slog.String("name", name),
			slog.Int("failed_archives", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("all archives failed to store %s: %v", name, errs)
	}

	m.log.Info("Archived snapshot",
		slog.String("name", name),
		slog.Any("locations", locations),
		slog.Duration("duration", time.Since(start)))
	return strings.Join(locations, ","), nil
}

// Available checks if any archive is available.
func (m *MultiArchiver) Available(ctx context.Context) bool {
	for _, archive := range m.archives {
		if archive.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this archive.
func (m *MultiArchiver) Name() string {
	return "multi-archive"
}

// LocationURI returns the combined URIs of all archives.
func (m *MultiArchiver) LocationURI() string {
	var locations []string
	for _, archive := range m.archives {
		locations = append(locations, archive.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
