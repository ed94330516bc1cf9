package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reslice/internal/config"
)

const userAgent = "Reslice-Go/0.1.0"

// Client uploads artifacts to the object storage backend. Uploads are
// upserts, so retrying a partially finished batch never duplicates objects.
type Client struct {
	baseURL string
	bucket  string
	token   string
	client  *http.Client
}

// New builds a storage client from configuration. A missing base URL yields
// a nil client; callers treat nil as "storage unavailable".
func New(cfg *config.Config) *Client {
	base := strings.TrimSpace(cfg.ObjectStore.BaseURL)
	if base == "" {
		return nil
	}

	timeout := time.Duration(cfg.ObjectStore.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	bucket := strings.TrimSpace(cfg.ObjectStore.Bucket)
	if bucket == "" {
		bucket = "medical-slices"
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		bucket:  bucket,
		token:   strings.TrimSpace(cfg.ObjectStore.Token),
		client:  &http.Client{Timeout: timeout},
	}
}

// Available reports whether the client can issue requests.
func (c *Client) Available() bool {
	return c != nil && c.client != nil
}

// Upload stores data at the given object path and returns its public URL.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("object storage not configured")
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, strings.TrimLeft(objectPath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("storage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return c.PublicURL(objectPath), nil
}

// PublicURL returns the public address of an uploaded object.
func (c *Client) PublicURL(objectPath string) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, strings.TrimLeft(objectPath, "/"))
}
