package thingsboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable marks any failed call to the ThingsBoard REST API. It is
// deliberately distinct from a not-found result so callers can tell "platform
// down" apart from "no such device".
var ErrUnavailable = errors.New("thingsboard unavailable")

// APIError carries the platform's status code for a failed call.
type APIError struct {
	Op         string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("thingsboard %s failed with status %d", e.Op, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return ErrUnavailable
}

// CredentialProfile selects the service-account credentials used to
// authenticate against the platform. Resolved once at login time from the
// user's role, never from role strings at call sites.
type CredentialProfile int

const (
	ProfileAdmin CredentialProfile = iota
	ProfileTenant
)

type Credentials struct {
	Username string
	Password string
}

type Device struct {
	ID   EntityID `json:"id"`
	Name string   `json:"name"`
	Type string   `json:"type,omitempty"`
}

type EntityID struct {
	EntityType string `json:"entityType"`
	ID         string `json:"id"`
}

type Attribute struct {
	Key          string      `json:"key"`
	Value        interface{} `json:"value"`
	LastUpdateTs int64       `json:"lastUpdateTs,omitempty"`
}

type TimeseriesValue struct {
	TS    int64       `json:"ts"`
	Value interface{} `json:"value"`
}

// DefaultTelemetryKeys are the vital-sign timeseries keys published by the
// monitoring devices.
var DefaultTelemetryKeys = []string{"heart_rate", "SpO2", "temperature", "alarm"}

type Client struct {
	baseURL     string
	adminCreds  Credentials
	tenantCreds Credentials
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient builds a ThingsBoard REST client. Every request is bounded by
// timeout so a platform outage cannot hang a caller indefinitely.
func NewClient(baseURL string, adminCreds, tenantCreds Credentials, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		adminCreds:  adminCreds,
		tenantCreds: tenantCreds,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Login exchanges the selected credential profile for a bearer token.
func (c *Client) Login(ctx context.Context, profile CredentialProfile) (string, error) {
	creds := c.tenantCreds
	if profile == ProfileAdmin {
		creds = c.adminCreds
	}

	body, err := json.Marshal(map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Op: "login", StatusCode: resp.StatusCode}
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}

	return result.Token, nil
}

// ListDevices returns the tenant's devices, one page capped at 1000 entries.
func (c *Client) ListDevices(ctx context.Context, token string) ([]Device, error) {
	endpoint := c.baseURL + "/api/tenant/devices?pageSize=1000&page=0"

	var result struct {
		Data []Device `json:"data"`
	}
	if err := c.get(ctx, "list devices", endpoint, token, &result); err != nil {
		return nil, err
	}

	return result.Data, nil
}

func (c *Client) GetAttributes(ctx context.Context, deviceID, token string, keys []string) ([]Attribute, error) {
	endpoint := fmt.Sprintf("%s/api/plugins/telemetry/DEVICE/%s/values/attributes?keys=%s",
		c.baseURL, deviceID, url.QueryEscape(strings.Join(keys, ",")))

	var attributes []Attribute
	if err := c.get(ctx, "get attributes", endpoint, token, &attributes); err != nil {
		return nil, err
	}

	return attributes, nil
}

func (c *Client) GetTimeseries(ctx context.Context, deviceID, token string, keys []string) (map[string][]TimeseriesValue, error) {
	endpoint := fmt.Sprintf("%s/api/plugins/telemetry/DEVICE/%s/values/timeseries?keys=%s",
		c.baseURL, deviceID, url.QueryEscape(strings.Join(keys, ",")))

	var series map[string][]TimeseriesValue
	if err := c.get(ctx, "get timeseries", endpoint, token, &series); err != nil {
		return nil, err
	}

	return series, nil
}

func (c *Client) DeleteDevice(ctx context.Context, deviceID, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/device/"+deviceID, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("X-Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete device: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: "delete device", StatusCode: resp.StatusCode}
	}

	c.logger.Info("device deleted from thingsboard", zap.String("device_id", deviceID))
	return nil
}

func (c *Client) get(ctx context.Context, op, endpoint, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("X-Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	return nil
}
