package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sautalquran/internal/domain"
)

// ErrAuthRejected marks an upload refused with 401/403. The sync worker
// treats it like any transient failure: the item stays queued.
var ErrAuthRejected = errors.New("auth rejected")

// StatusError is a non-2xx response outside the auth-rejection cases.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d error: %s", e.Status, e.Body)
}

// Client is the typed REST client for the recitation API.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrAuthRejected, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) CreateRecitation(ctx context.Context, data domain.RecordingData, token string) (domain.Recitation, error) {
	var rec domain.Recitation
	if err := c.do(ctx, http.MethodPost, "/api/v1/recitations/", token, data, &rec); err != nil {
		return domain.Recitation{}, err
	}
	return rec, nil
}

func (c *Client) CreateMarker(ctx context.Context, data domain.MarkerData, token string) (domain.Marker, error) {
	var m domain.Marker
	if err := c.do(ctx, http.MethodPost, "/api/v1/markers/", token, data, &m); err != nil {
		return domain.Marker{}, err
	}
	return m, nil
}

func (c *Client) ListRecitations(ctx context.Context, token string) ([]domain.Recitation, error) {
	var recs []domain.Recitation
	if err := c.do(ctx, http.MethodGet, "/api/v1/recitations/", token, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) ListComments(ctx context.Context, recitationID int64, token string) ([]domain.Comment, error) {
	var comments []domain.Comment
	path := fmt.Sprintf("/api/v1/comments/recitation/%d", recitationID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}
