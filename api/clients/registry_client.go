package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ruteri/holder-address-registry/api"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// RegistryProvider is the client view of the registry API.
type RegistryProvider interface {
	Register(ctx context.Context, primary, secondary string) error
	Lookup(ctx context.Context, primary string) (string, error)
	Eligibility(ctx context.Context, wallet string) (bool, error)
	Export(ctx context.Context, credential string) ([]byte, error)
	Config(ctx context.Context) (*api.ConfigResponse, error)
}

// RegistryClient implements RegistryProvider over HTTP.
type RegistryClient struct {
	// ServerAddr is the base URL of the registry server
	ServerAddr string

	// HTTPClient is used for all requests. nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Register submits a registration. Rejections are mapped back to the registry's
// errors: *interfaces.ConflictError (carrying the existing secondary address),
// ErrInvalidAddress, ErrInvalidPrimaryAddress and ErrNotEligible.
func (c *RegistryClient) Register(ctx context.Context, primary, secondary string) error {
	body, err := json.Marshal(api.RegisterRequest{PrimaryAddress: primary, SecondaryAddress: secondary})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, api.SaveAddressPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not request registration endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	msg := readMessage(resp)
	switch resp.StatusCode {
	case http.StatusBadRequest:
		if existing, ok := api.ParseConflict(msg); ok {
			return &interfaces.ConflictError{PrimaryAddress: primary, Existing: existing}
		}
		if strings.Contains(msg, "primary") {
			return fmt.Errorf("%w: %s", interfaces.ErrInvalidPrimaryAddress, msg)
		}
		return fmt.Errorf("%w: %s", interfaces.ErrInvalidAddress, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", interfaces.ErrNotEligible, msg)
	default:
		return statusError(resp.StatusCode, msg)
	}
}

// Lookup returns the secondary address registered for primary, or ErrNotFound.
func (c *RegistryClient) Lookup(ctx context.Context, primary string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, api.GetAddressPath+"?primaryAddress="+url.QueryEscape(primary), nil)
	if err != nil {
		return "", fmt.Errorf("could not request lookup endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", interfaces.ErrNotFound
	case http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", interfaces.ErrInvalidPrimaryAddress, readMessage(resp))
	default:
		return "", statusError(resp.StatusCode, readMessage(resp))
	}

	var parsed api.LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("could not parse lookup response: %w", err)
	}
	return parsed.SecondaryAddress, nil
}

// Eligibility asks the server whether wallet holds a qualifying asset.
func (c *RegistryClient) Eligibility(ctx context.Context, wallet string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, api.EligibilityPath+"?address="+url.QueryEscape(wallet), nil)
	if err != nil {
		return false, fmt.Errorf("could not request eligibility endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, statusError(resp.StatusCode, readMessage(resp))
	}

	var parsed api.EligibilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("could not parse eligibility response: %w", err)
	}
	return parsed.Eligible, nil
}

// Export downloads the CSV of all registrations. A rejected credential yields ErrUnauthorized.
func (c *RegistryClient) Export(ctx context.Context, credential string) ([]byte, error) {
	body, err := json.Marshal(api.ExportRequest{Credential: credential})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, api.ExportPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not request export endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusUnauthorized:
		return nil, interfaces.ErrUnauthorized
	default:
		return nil, statusError(resp.StatusCode, readMessage(resp))
	}
}

// Config fetches the deployment details served to the UI.
func (c *RegistryClient) Config(ctx context.Context) (*api.ConfigResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, api.ConfigPath, nil)
	if err != nil {
		return nil, fmt.Errorf("could not request config endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, readMessage(resp))
	}

	var parsed api.ConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse config response: %w", err)
	}
	return &parsed, nil
}

func (c *RegistryClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.ServerAddr, "/")+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

func readMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func statusError(status int, msg string) error {
	err := fmt.Errorf("registry returned error %d: %s", status, msg)
	if status >= http.StatusInternalServerError {
		return errors.Join(api.ErrServerError, err)
	}
	return err
}

// MockRegistryProvider implements a mock RegistryProvider for testing.
type MockRegistryProvider struct {
	mock.Mock
}

func (m *MockRegistryProvider) Register(ctx context.Context, primary, secondary string) error {
	return m.Called(primary, secondary).Error(0)
}

func (m *MockRegistryProvider) Lookup(ctx context.Context, primary string) (string, error) {
	args := m.Called(primary)
	return args.String(0), args.Error(1)
}

func (m *MockRegistryProvider) Eligibility(ctx context.Context, wallet string) (bool, error) {
	args := m.Called(wallet)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistryProvider) Export(ctx context.Context, credential string) ([]byte, error) {
	args := m.Called(credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRegistryProvider) Config(ctx context.Context) (*api.ConfigResponse, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ConfigResponse), args.Error(1)
}
