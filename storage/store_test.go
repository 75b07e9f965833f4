package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	solA = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	solB = "11111111111111111111111111111111"
)

var (
	primaryA = common.HexToAddress("0xc0ad5b5babe71c7b1664a4b301673333ecaaf582").Hex()
	primaryB = common.HexToAddress("0xf7f88d2a9497c974cd5f132a3db6a9ab82df78cd").Hex()
)

// testRegistrationStore runs the behaviour every backend must share.
func testRegistrationStore(t *testing.T, newStore func(t *testing.T) interfaces.RegistrationStore) {
	ctx := context.Background()

	t.Run("lookup missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Lookup(ctx, primaryA)
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
	})

	t.Run("append then lookup", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryA, SecondaryAddress: solA}))

		reg, err := store.Lookup(ctx, primaryA)
		require.NoError(t, err)
		assert.Equal(t, solA, reg.SecondaryAddress)
		assert.Equal(t, primaryA, reg.PrimaryAddress)
	})

	t.Run("duplicate append conflicts with first value", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryA, SecondaryAddress: solA}))

		err := store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryA, SecondaryAddress: solB})
		require.Error(t, err)
		assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)

		var conflict *interfaces.ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, solA, conflict.Existing)

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("all preserves insertion order", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryB, SecondaryAddress: solB}))
		require.NoError(t, store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryA, SecondaryAddress: solA}))

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []interfaces.Registration{
			{PrimaryAddress: primaryB, SecondaryAddress: solB},
			{PrimaryAddress: primaryA, SecondaryAddress: solA},
		}, all)
	})

	t.Run("concurrent appends have one winner", func(t *testing.T) {
		store := newStore(t)

		const writers = 16
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Append(ctx, interfaces.Registration{
					PrimaryAddress:   primaryA,
					SecondaryAddress: fmt.Sprintf("secondary-%d", i),
				})
			}(i)
		}
		wg.Wait()

		winner := -1
		for i, err := range errs {
			if err == nil {
				assert.Equal(t, -1, winner, "more than one append succeeded")
				winner = i
				continue
			}
			assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)
		}
		require.NotEqual(t, -1, winner, "no append succeeded")

		all, err := store.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, fmt.Sprintf("secondary-%d", winner), all[0].SecondaryAddress)
	})

	t.Run("available", func(t *testing.T) {
		store := newStore(t)
		assert.True(t, store.Available(ctx))
		assert.NotEmpty(t, store.Name())
		assert.NotEmpty(t, store.LocationURI())
	})
}

func TestMemoryStore(t *testing.T) {
	testRegistrationStore(t, func(t *testing.T) interfaces.RegistrationStore {
		return NewMemoryStore()
	})
}

func TestFileBackend(t *testing.T) {
	testRegistrationStore(t, func(t *testing.T) interfaces.RegistrationStore {
		store, err := NewFileBackend(filepath.Join(t.TempDir(), "addresses.csv"), testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "addresses.csv")

	store, err := NewFileBackend(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryA, SecondaryAddress: solA}))
	require.NoError(t, store.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Primary Address,Secondary Address\n"+primaryA+","+solA+"\n", string(data))

	reopened, err := NewFileBackend(path, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	reg, err := reopened.Lookup(ctx, primaryA)
	require.NoError(t, err)
	assert.Equal(t, solA, reg.SecondaryAddress)

	err = reopened.Append(ctx, interfaces.Registration{PrimaryAddress: primaryA, SecondaryAddress: solB})
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)
}

func TestFileBackend_MissingTrailingNewline(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "addresses.csv")
	require.NoError(t, os.WriteFile(path, []byte("Primary Address,Secondary Address\n"+primaryA+","+solA), 0644))

	store, err := NewFileBackend(path, testLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryB, SecondaryAddress: solB}))

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Registration{
		{PrimaryAddress: primaryA, SecondaryAddress: solA},
		{PrimaryAddress: primaryB, SecondaryAddress: solB},
	}, all)

	reg, err := store.Lookup(ctx, primaryB)
	require.NoError(t, err)
	assert.Equal(t, solB, reg.SecondaryAddress)

	err = store.Append(ctx, interfaces.Registration{PrimaryAddress: primaryB, SecondaryAddress: solA})
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)
}

func TestFileBackend_LegacySpreadsheet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "addresses.csv")
	legacy := "Ethereum Address,Solana Address\n" + strings.ToLower(primaryA) + "," + solA + "\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	store, err := NewFileBackend(path, testLogger())
	require.NoError(t, err)
	defer store.Close()

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.Registration{{PrimaryAddress: primaryA, SecondaryAddress: solA}}, all)

	reg, err := store.Lookup(ctx, primaryA)
	require.NoError(t, err)
	assert.Equal(t, solA, reg.SecondaryAddress)

	err = store.Append(ctx, interfaces.Registration{PrimaryAddress: "0x" + strings.ToUpper(primaryA[2:]), SecondaryAddress: solB})
	var conflict *interfaces.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, solA, conflict.Existing)
}

func TestSQLiteBackend(t *testing.T) {
	testRegistrationStore(t, func(t *testing.T) interfaces.RegistrationStore {
		store, err := NewSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "registry.db"), testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("REGISTRY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REGISTRY_TEST_POSTGRES_DSN not set")
	}

	testRegistrationStore(t, func(t *testing.T) interfaces.RegistrationStore {
		u, err := url.Parse(dsn)
		require.NoError(t, err)
		store, err := NewPostgresBackend(context.Background(), u, testLogger())
		require.NoError(t, err)
		_, err = store.db.Exec("TRUNCATE registrations")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestRedisBackend(t *testing.T) {
	redisURL := os.Getenv("REGISTRY_TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("REGISTRY_TEST_REDIS_URL not set")
	}

	testRegistrationStore(t, func(t *testing.T) interfaces.RegistrationStore {
		u, err := url.Parse(redisURL)
		require.NoError(t, err)
		q := u.Query()
		q.Set("key", "test:"+t.Name())
		u.RawQuery = q.Encode()

		store, err := NewRedisBackend(context.Background(), u, testLogger())
		require.NoError(t, err)
		require.NoError(t, store.client.Del(context.Background(), store.hashKey, store.orderKey).Err())
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestStoreFor(t *testing.T) {
	ctx := context.Background()
	factory := NewStoreFactory(testLogger())
	dir := t.TempDir()

	tests := []struct {
		uri      string
		wantName string
	}{
		{"memory://", "memory"},
		{"file://" + filepath.Join(dir, "addresses.csv"), "file-addresses.csv"},
		{"sqlite://" + filepath.Join(dir, "registry.db"), "sqlite"},
		{"sqlite::memory:", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			store, err := factory.StoreFor(ctx, tt.uri)
			require.NoError(t, err)
			defer store.Close()
			assert.Equal(t, tt.wantName, store.Name())
		})
	}

	for _, bad := range []string{"ftp://example.com/x", "file://" + dir + "/", "::::"} {
		_, err := factory.StoreFor(ctx, bad)
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI, bad)
	}
}
