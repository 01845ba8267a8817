package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPStoreTimeout = 5 * time.Second

// HTTPStore is the networked primary tier: a thin client for a remote
// key/value service exposing GET/PUT /kv/{key} with a ttl_seconds query
// parameter on writes. Every failure surfaces as an error for the tiered
// layer to absorb; this type never retries.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates a primary store client for the service at baseURL.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPStoreTimeout}
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *HTTPStore) keyURL(key string) string {
	return s.baseURL + "/kv/" + url.PathEscape(key)
}

func (s *HTTPStore) Get(ctx context.Context, key string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.keyURL(key), nil)
	if err != nil {
		return "", false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("cache backend get: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", false, fmt.Errorf("cache backend read: %w", err)
		}
		return string(body), true, nil
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("cache backend get: unexpected status %d", resp.StatusCode)
	}
}

func (s *HTTPStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	target := fmt.Sprintf("%s?ttl_seconds=%d", s.keyURL(key), int(ttl.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, strings.NewReader(value))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("cache backend set: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("cache backend set: unexpected status %d", resp.StatusCode)
	}
	return nil
}

var _ Store = (*HTTPStore)(nil)
