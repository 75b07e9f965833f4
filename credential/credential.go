// Package credential resolves the export shared secret from its configured reference.
//
// Supported references:
//
//	env:NAME                                  value of environment variable NAME
//	file:/path/to/secret                      file content, trailing newline trimmed
//	vault://host:port/mount/path#field        KV v2 secret field, token from VAULT_TOKEN
//	anything else                             used literally
package credential

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// ErrEmptyCredential is returned when a reference resolves to an empty secret.
var ErrEmptyCredential = errors.New("credential resolved to an empty value")

// KVReader reads KV v2 secrets. *api.KVv2 satisfies it.
type KVReader interface {
	Get(ctx context.Context, secretPath string) (*api.KVSecret, error)
}

// Resolve turns a credential reference into the secret value.
func Resolve(ctx context.Context, ref string) (string, error) {
	var (
		value string
		err   error
	)

	switch {
	case strings.HasPrefix(ref, "env:"):
		value = os.Getenv(strings.TrimPrefix(ref, "env:"))
	case strings.HasPrefix(ref, "file:"):
		var data []byte
		data, err = os.ReadFile(strings.TrimPrefix(ref, "file:"))
		if err != nil {
			return "", fmt.Errorf("failed to read credential file: %w", err)
		}
		value = strings.TrimRight(string(data), "\r\n")
	case strings.HasPrefix(ref, "vault://"), strings.HasPrefix(ref, "vaults://"):
		value, err = resolveVault(ctx, ref)
		if err != nil {
			return "", err
		}
	default:
		value = ref
	}

	if value == "" {
		return "", ErrEmptyCredential
	}
	return value, nil
}

// resolveVault reads vault://host:port/mount/path#field. "vaults" selects https.
func resolveVault(ctx context.Context, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid vault reference: %w", err)
	}

	mount, secretPath, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !ok || mount == "" || secretPath == "" || u.Fragment == "" {
		return "", fmt.Errorf("vault reference must look like vault://host:port/mount/path#field")
	}

	scheme := "http"
	if u.Scheme == "vaults" {
		scheme = "https"
	}

	config := api.DefaultConfig()
	config.Address = fmt.Sprintf("%s://%s", scheme, u.Host)
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return "", fmt.Errorf("failed to create Vault client: %w", err)
	}

	return ReadKVField(ctx, client.KVv2(mount), secretPath, u.Fragment)
}

// ReadKVField reads a single string field of a KV v2 secret.
func ReadKVField(ctx context.Context, kv KVReader, secretPath, field string) (string, error) {
	secret, err := kv.Get(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret %s not found in Vault", secretPath)
	}

	raw, ok := secret.Data[field]
	if !ok {
		return "", fmt.Errorf("field %q missing from secret %s", field, secretPath)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q of secret %s is not a string", field, secretPath)
	}
	return value, nil
}
