package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/holder-address-registry/interfaces"
)

// IPFSArchiver adds snapshots to an IPFS node and returns their CID.
// Content on IPFS is public to anyone who learns the CID.
type IPFSArchiver struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSArchiver connects to the IPFS HTTP API at host:port.
func NewIPFSArchiver(host, port string, timeout time.Duration, log *slog.Logger) *IPFSArchiver {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSArchiver{
		shell:       sh,
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}
}

// Put adds data to IPFS. The name is only used for logging; IPFS addresses content by CID.
func (a *IPFSArchiver) Put(ctx context.Context, name string, data []byte) (string, error) {
	if !a.shell.IsUp() {
		return "", interfaces.ErrBackendUnavailable
	}

	cid, err := a.shell.Add(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to add data to IPFS: %w", err)
	}

	a.log.Debug("Archived snapshot to IPFS",
		slog.String("name", name),
		slog.String("ipfsCID", cid))

	return "ipfs://" + cid, nil
}

// Available checks if the IPFS node is accessible.
func (a *IPFSArchiver) Available(ctx context.Context) bool {
	return a.shell.IsUp()
}

// Name returns a unique identifier for this archive.
func (a *IPFSArchiver) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", a.host, a.port)
}

// LocationURI returns the URI that identifies this archive.
func (a *IPFSArchiver) LocationURI() string {
	return a.locationURI
}
