// Package export produces the CSV snapshot of all registrations for operators.
package export

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/ruteri/holder-address-registry/metrics"
	"github.com/ruteri/holder-address-registry/storage"
)

// Filename is the attachment name offered to browsers.
const Filename = "addresses.csv"

// Service checks the shared export credential and renders the store as CSV.
type Service struct {
	credential []byte
	store      interfaces.RegistrationStore
	archiver   interfaces.Archiver
	log        *slog.Logger

	now func() time.Time
}

// NewService creates an export service. An empty credential disables export.
// archiver may be nil.
func NewService(credential string, store interfaces.RegistrationStore, archiver interfaces.Archiver, log *slog.Logger) *Service {
	return &Service{
		credential: []byte(credential),
		store:      store,
		archiver:   archiver,
		log:        log,
		now:        time.Now,
	}
}

// Authorized reports whether the supplied credential matches, in constant time.
func (s *Service) Authorized(credential string) bool {
	if len(s.credential) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.credential, []byte(credential)) == 1
}

// Export returns the CSV document of all registrations. A mismatching
// credential yields ErrUnauthorized and the store is not read.
func (s *Service) Export(ctx context.Context, credential string) ([]byte, error) {
	if !s.Authorized(credential) {
		metrics.Exports.WithLabelValues("unauthorized").Inc()
		return nil, interfaces.ErrUnauthorized
	}

	records, err := s.store.All(ctx)
	if err != nil {
		metrics.Exports.WithLabelValues("store_error").Inc()
		s.log.Error("Failed to read registrations for export", "err", err, "store", s.store.Name())
		return nil, &interfaces.StoreError{Op: "export", Err: err}
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		metrics.Exports.WithLabelValues("store_error").Inc()
		return nil, err
	}
	data := buf.Bytes()

	metrics.Exports.WithLabelValues("success").Inc()
	s.log.Info("Exported registrations", "count", len(records))

	s.archive(ctx, data)
	return data, nil
}

// archive stores a copy of the export. Failures never fail the export.
func (s *Service) archive(ctx context.Context, data []byte) {
	if s.archiver == nil {
		return
	}

	name := fmt.Sprintf("addresses-%s.csv", s.now().UTC().Format("20060102T150405Z"))
	location, err := s.archiver.Put(ctx, name, data)
	if err != nil {
		metrics.ArchiveFailures.Inc()
		s.log.Warn("Failed to archive export", "err", err, "archive", s.archiver.Name(), "name", name)
		return
	}
	s.log.Info("Archived export", "location", location)
}

// WriteCSV writes the header row followed by one row per registration.
func WriteCSV(w io.Writer, records []interfaces.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(storage.CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.PrimaryAddress, r.SecondaryAddress}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
