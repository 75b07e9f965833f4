package registration

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/ruteri/holder-address-registry/storage"
	"github.com/ruteri/holder-address-registry/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const primary = "0xc0ad5b5babe71c7b1664a4b301673333ecaaf582"

var (
	canonical  = common.HexToAddress(primary).Hex()
	discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func newSecondary(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

// MockChecker mocks interfaces.OwnershipChecker.
type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) OwnsAsset(ctx context.Context, wallet common.Address) bool {
	return m.Called(wallet).Bool(0)
}

// MockStore mocks interfaces.RegistrationStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Lookup(ctx context.Context, primaryAddress string) (interfaces.Registration, error) {
	args := m.Called(primaryAddress)
	return args.Get(0).(interfaces.Registration), args.Error(1)
}

func (m *MockStore) Append(ctx context.Context, reg interfaces.Registration) error {
	return m.Called(reg).Error(0)
}

func (m *MockStore) All(ctx context.Context) ([]interfaces.Registration, error) {
	args := m.Called()
	return args.Get(0).([]interfaces.Registration), args.Error(1)
}

func (m *MockStore) Available(ctx context.Context) bool { return true }
func (m *MockStore) Name() string                       { return "mock" }
func (m *MockStore) LocationURI() string                { return "mock://" }
func (m *MockStore) Close() error                       { return nil }

func newMemoryService() (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewService(validator.New(validator.ModeOnCurve), store, nil, discardLog), store
}

func TestRegister(t *testing.T) {
	svc, store := newMemoryService()
	ctx := context.Background()
	secondary := newSecondary(t)

	reg, err := svc.Register(ctx, primary, secondary)
	require.NoError(t, err)
	assert.Equal(t, canonical, reg.PrimaryAddress)
	assert.Equal(t, secondary, reg.SecondaryAddress)

	stored, err := store.Lookup(ctx, canonical)
	require.NoError(t, err)
	assert.Equal(t, *reg, stored)
}

func TestRegister_DuplicateKeepsFirstWriter(t *testing.T) {
	svc, store := newMemoryService()
	ctx := context.Background()
	first := newSecondary(t)

	_, err := svc.Register(ctx, primary, first)
	require.NoError(t, err)

	// Case variants of the same wallet share one key.
	_, err = svc.Register(ctx, "0x"+strings.ToUpper(primary[2:]), newSecondary(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)

	var conflict *interfaces.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first, conflict.Existing)
	assert.Contains(t, err.Error(), interfaces.ConflictDelimiter+first)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first, all[0].SecondaryAddress)
}

func TestRegister_InvalidInputNeverStored(t *testing.T) {
	store := new(MockStore)
	svc := NewService(validator.New(validator.ModeOnCurve), store, nil, discardLog)
	ctx := context.Background()

	offCurve := make([]byte, validator.AddressSize)
	offCurve[0] = 2

	for _, secondary := range []string{"", "   ", "abc", base58.Encode(offCurve)} {
		_, err := svc.Register(ctx, primary, secondary)
		assert.ErrorIs(t, err, interfaces.ErrInvalidAddress, secondary)
	}

	_, err := svc.Register(ctx, "0x1234", newSecondary(t))
	assert.ErrorIs(t, err, interfaces.ErrInvalidPrimaryAddress)

	store.AssertNotCalled(t, "Lookup", mock.Anything)
	store.AssertNotCalled(t, "Append", mock.Anything)
}

func TestRegister_OwnershipEnforced(t *testing.T) {
	store := storage.NewMemoryStore()
	checker := new(MockChecker)
	svc := NewService(validator.New(validator.ModeLength), store, checker, discardLog)
	ctx := context.Background()

	holder := common.HexToAddress(primary)
	other := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	checker.On("OwnsAsset", holder).Return(true)
	checker.On("OwnsAsset", other).Return(false)

	_, err := svc.Register(ctx, primary, newSecondary(t))
	require.NoError(t, err)

	_, err = svc.Register(ctx, other.Hex(), newSecondary(t))
	assert.ErrorIs(t, err, interfaces.ErrNotEligible)

	_, err = store.Lookup(ctx, other.Hex())
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	checker.AssertExpectations(t)
}

func TestRegister_StoreFailures(t *testing.T) {
	ctx := context.Background()
	secondary := newSecondary(t)

	t.Run("lookup", func(t *testing.T) {
		store := new(MockStore)
		store.On("Lookup", canonical).Return(interfaces.Registration{}, errors.New("connection refused"))
		svc := NewService(validator.New(validator.ModeOnCurve), store, nil, discardLog)

		_, err := svc.Register(ctx, primary, secondary)
		var storeErr *interfaces.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Contains(t, err.Error(), "connection refused")
		store.AssertNotCalled(t, "Append", mock.Anything)
	})

	t.Run("append", func(t *testing.T) {
		store := new(MockStore)
		store.On("Lookup", canonical).Return(interfaces.Registration{}, interfaces.ErrNotFound)
		store.On("Append", mock.Anything).Return(errors.New("disk full"))
		svc := NewService(validator.New(validator.ModeOnCurve), store, nil, discardLog)

		_, err := svc.Register(ctx, primary, secondary)
		var storeErr *interfaces.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "append", storeErr.Op)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("lost race", func(t *testing.T) {
		store := new(MockStore)
		store.On("Lookup", canonical).Return(interfaces.Registration{}, interfaces.ErrNotFound)
		store.On("Append", mock.Anything).Return(&interfaces.ConflictError{PrimaryAddress: canonical, Existing: "winner"})
		svc := NewService(validator.New(validator.ModeOnCurve), store, nil, discardLog)

		_, err := svc.Register(ctx, primary, secondary)
		var conflict *interfaces.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "winner", conflict.Existing)
	})
}

func TestRegister_ConcurrentSamePrimary(t *testing.T) {
	svc, store := newMemoryService()
	ctx := context.Background()

	const writers = 16
	secondaries := make([]string, writers)
	for i := range secondaries {
		secondaries[i] = newSecondary(t)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(secondary string) {
			defer wg.Done()
			_, err := svc.Register(ctx, primary, secondary)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, interfaces.ErrAlreadyRegistered) {
				conflicts++
			}
		}(secondaries[i])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLookup(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()
	secondary := newSecondary(t)

	_, err := svc.Lookup(ctx, primary)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = svc.Register(ctx, primary, secondary)
	require.NoError(t, err)

	reg, err := svc.Lookup(ctx, canonical)
	require.NoError(t, err)
	assert.Equal(t, secondary, reg.SecondaryAddress)

	_, err = svc.Lookup(ctx, "nope")
	assert.ErrorIs(t, err, interfaces.ErrInvalidPrimaryAddress)
}
