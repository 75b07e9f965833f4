package archive

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/holder-address-registry/interfaces"
)

// ArchiverFactory creates archives from URI strings.
type ArchiverFactory struct {
	log *slog.Logger
}

// NewArchiverFactory creates a new factory.
func NewArchiverFactory(logger *slog.Logger) *ArchiverFactory {
	return &ArchiverFactory{log: logger}
}

// ArchiverFor creates an archive from a location URI.
//
// Supported schemes:
//   - file:// - Local directory
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node HTTP API
func (af *ArchiverFactory) ArchiverFor(locationURI string) (interfaces.Archiver, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return af.createFileArchiver(u)
	case "s3":
		return af.createS3Archiver(u)
	case "ipfs":
		return af.createIPFSArchiver(u)
	default:
		return nil, fmt.Errorf("%w: unsupported archive scheme: %s", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiArchiver creates a fan-out archive from a list of URIs. Invalid
// URIs are logged and skipped; an error is returned only if none is usable.
func (af *ArchiverFactory) CreateMultiArchiver(locationURIs []string) (interfaces.Archiver, error) {
	archives := make([]interfaces.Archiver, 0, len(locationURIs))

	for _, uri := range locationURIs {
		archive, err := af.ArchiverFor(uri)
		if err != nil {
			af.log.Warn("Failed to create archive",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		archives = append(archives, archive)
	}

	if len(archives) == 0 {
		return nil, fmt.Errorf("no valid archives created")
	}

	return NewMultiArchiver(archives, af.log), nil
}

// createFileArchiver creates a local directory archive.
// URI format: file:///absolute/path/ or file://./relative/path/
func (af *ArchiverFactory) createFileArchiver(u *url.URL) (interfaces.Archiver, error) {
	af.log.Debug("Creating file archive", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, u.String())
	}
	return NewFileArchiver(path, af.log)
}

// createS3Archiver creates an S3 archive.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com
func (af *ArchiverFactory) createS3Archiver(u *url.URL) (interfaces.Archiver, error) {
	af.log.Debug("Creating S3 archive", slog.String("uri", u.Redacted()))

	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}
	prefix := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
		af.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Archiver(bucketName, prefix, region, endpoint, accessKey, secretKey, af.log)
}

// createIPFSArchiver creates an IPFS archive.
// URI format: ipfs://host:port/?timeout=30s
func (af *ArchiverFactory) createIPFSArchiver(u *url.URL) (interfaces.Archiver, error) {
	af.log.Debug("Creating IPFS archive", slog.String("uri", u.String()))

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5001"
	}

	timeout := 30 * time.Second
	if raw := u.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid IPFS timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = d
	}

	return NewIPFSArchiver(host, port, timeout, af.log), nil
}
