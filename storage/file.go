package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"
	"github.com/ruteri/holder-address-registry/interfaces"
)

// CSVHeader is the first row of file-backed stores and of exports.
var CSVHeader = []string{"Primary Address", "Secondary Address"}

// FileBackend implements a registration store on a local CSV file, the
// spreadsheet the registry historically lived in. Column A holds the primary
// address, column B the secondary address. Any header row is skipped and hex
// primaries are compared in checksummed form, whatever case they were written in.
//
// Writers in this process are serialized with a mutex and writers in other
// processes with an flock(2) lock on "<path>.lock".
type FileBackend struct {
	mu          sync.Mutex
	path        string
	lock        *flock.Flock
	log         *slog.Logger
	locationURI string
}

// NewFileBackend opens (creating if needed) the CSV file at path.
func NewFileBackend(path string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	b := &FileBackend{
		path:        path,
		lock:        flock.New(path + ".lock"),
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}

	if err := b.lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	defer b.lock.Unlock()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := b.writeHeader(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return b, nil
}

func (b *FileBackend) writeHeader() error {
	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return f.Sync()
}

// readAll reads every record. The caller must hold the lock.
func (b *FileBackend) readAll() ([]interfaces.Registration, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []interfaces.Registration
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		// Any header is accepted, including the legacy "Ethereum Address,Solana Address".
		if first {
			first = false
			if len(row) > 0 && !common.IsHexAddress(strings.TrimSpace(row[0])) {
				continue
			}
		}
		if len(row) < 2 {
			b.log.Warn("Skipping malformed row", slog.String("path", b.path), slog.Int("columns", len(row)))
			continue
		}
		records = append(records, interfaces.Registration{PrimaryAddress: normalizePrimary(row[0]), SecondaryAddress: strings.TrimSpace(row[1])})
	}
	return records, nil
}

func (b *FileBackend) Lookup(ctx context.Context, primaryAddress string) (interfaces.Registration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lock.RLock(); err != nil {
		return interfaces.Registration{}, fmt.Errorf("failed to lock file: %w", err)
	}
	defer b.lock.Unlock()

	records, err := b.readAll()
	if err != nil {
		return interfaces.Registration{}, err
	}
	primaryAddress = normalizePrimary(primaryAddress)
	for _, rec := range records {
		if rec.PrimaryAddress == primaryAddress {
			return rec, nil
		}
	}
	return interfaces.Registration{}, interfaces.ErrNotFound
}

func (b *FileBackend) Append(ctx context.Context, reg interfaces.Registration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock file: %w", err)
	}
	defer b.lock.Unlock()

	records, err := b.readAll()
	if err != nil {
		return err
	}
	reg.PrimaryAddress = normalizePrimary(reg.PrimaryAddress)
	for _, rec := range records {
		if rec.PrimaryAddress == reg.PrimaryAddress {
			return &interfaces.ConflictError{PrimaryAddress: reg.PrimaryAddress, Existing: rec.SecondaryAddress}
		}
	}

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for append: %w", err)
	}
	defer f.Close()

	// A hand-edited file may lack the final newline; the row must not join the last record.
	if err := terminateLastLine(f); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{reg.PrimaryAddress, reg.SecondaryAddress}); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}

	b.log.Debug("Appended registration to file",
		slog.String("path", b.path),
		slog.String("primaryAddress", reg.PrimaryAddress))
	return nil
}

func (b *FileBackend) All(ctx context.Context) ([]interfaces.Registration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock file: %w", err)
	}
	defer b.lock.Unlock()

	return b.readAll()
}

// Available checks that the backing file still exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.path)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.path))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) Close() error {
	return b.lock.Close()
}

// terminateLastLine writes a newline if f is non-empty and does not end with one.
func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return fmt.Errorf("failed to read file tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to terminate last line: %w", err)
	}
	return nil
}

// normalizePrimary maps hex addresses to their checksummed form so rows
// written in any case share one key.
func normalizePrimary(s string) string {
	s = strings.TrimSpace(s)
	if common.IsHexAddress(s) {
		return common.HexToAddress(s).Hex()
	}
	return s
}
