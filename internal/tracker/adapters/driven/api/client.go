package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"freight-tracker/internal/mylogger"
	"freight-tracker/internal/tracker/core/domain/dto"
	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/myerrors"
)

// TokenProvider returns the current bearer token, or "" when there is no
// session to attach.
type TokenProvider func(ctx context.Context) string

type Client struct {
	baseURL string
	client  *http.Client
	token   TokenProvider
	log     mylogger.Logger
}

func New(baseURL string, timeout time.Duration, token TokenProvider, log mylogger.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		token:   token,
		log:     log,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var bodyBytes []byte
	var err error

	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("api request", "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &myerrors.APIError{
			Status:  resp.StatusCode,
			Message: extractServerMessage(data),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// doRequestRaw is doRequest without response decoding, for endpoints whose
// shape is decoded by the caller.
func (c *Client) doRequestRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyBytes []byte
	var err error

	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &myerrors.APIError{
			Status:  resp.StatusCode,
			Message: extractServerMessage(data),
		}
	}
	return data, nil
}

// extractServerMessage pulls the human-readable message out of an error body,
// whichever of the two field names the backend used.
func extractServerMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// listEnvelope accepts both a bare JSON array and {"data": [...]}.
func decodeList[T any](data []byte) ([]T, error) {
	var bare []T
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}
	return wrapped.Data, nil
}

func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (model.Session, error) {
	data, err := c.doRequestRaw(ctx, http.MethodPost, "/users/login", req)
	if err != nil {
		return model.Session{}, err
	}
	return dto.DecodeLoginResponse(data)
}

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) error {
	return c.doRequest(ctx, http.MethodPost, "/users", req, nil)
}

func (c *Client) Freights(ctx context.Context) ([]model.Freight, error) {
	data, err := c.doRequestRaw(ctx, http.MethodGet, "/freights", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Freight](data)
}

func (c *Client) Companies(ctx context.Context) ([]model.Company, error) {
	data, err := c.doRequestRaw(ctx, http.MethodGet, "/companies", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Company](data)
}

func (c *Client) SearchCompanies(ctx context.Context) ([]model.Company, error) {
	data, err := c.doRequestRaw(ctx, http.MethodGet, "/companies/search", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Company](data)
}

func (c *Client) CompanyByID(ctx context.Context, id string) (model.Company, error) {
	var company model.Company
	err := c.doRequest(ctx, http.MethodGet, "/companies/"+url.PathEscape(id), nil, &company)
	return company, err
}

func (c *Client) Geofences(ctx context.Context, companyID string) ([]model.GeofenceRegion, error) {
	data, err := c.doRequestRaw(ctx, http.MethodGet, "/geofences?companyId="+url.QueryEscape(companyID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.GeofenceRegion](data)
}

func (c *Client) IngestLocation(ctx context.Context, payload model.LocationUpdatePayload) error {
	return c.doRequest(ctx, http.MethodPost, "/locations/ingest", payload, nil)
}

func (c *Client) BulkLocations(ctx context.Context, items []model.LocationUpdatePayload) error {
	body := struct {
		Items []model.LocationUpdatePayload `json:"items"`
	}{Items: items}
	return c.doRequest(ctx, http.MethodPost, "/locations/bulk", body, nil)
}

func (c *Client) PostGeofenceEvent(ctx context.Context, event model.GeofenceEvent) error {
	return c.doRequest(ctx, http.MethodPost, "/geofences/event", event, nil)
}
