// Package blob talks to the hosted object bucket that stores student
// avatars. Uploads land under a per-student path and are served from
// the bucket's public URL space.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const publicPrefix = "/object/public/"

// Client is a thin wrapper around the bucket's HTTP API.
type Client struct {
	baseURL string
	bucket  string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, bucket, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload stores the object and returns its public URL. An existing
// object at the same path is overwritten.
func (c *Client) Upload(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload object: unexpected status %d", resp.StatusCode)
	}

	return fmt.Sprintf("%s%s%s/%s", c.baseURL, publicPrefix, c.bucket, path), nil
}

// Delete removes the object behind a public URL previously returned by
// Upload. Unknown URLs are rejected rather than guessed at.
func (c *Client) Delete(ctx context.Context, publicURL string) error {
	path, err := c.objectPath(publicURL)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// A missing object is already the state we want.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete object: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}
}

// objectPath extracts the in-bucket path from a public URL.
func (c *Client) objectPath(publicURL string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", fmt.Errorf("parse object url: %w", err)
	}
	marker := publicPrefix + c.bucket + "/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return "", fmt.Errorf("url %q is not in bucket %q", publicURL, c.bucket)
	}
	path := u.Path[idx+len(marker):]
	if path == "" {
		return "", fmt.Errorf("url %q has no object path", publicURL)
	}
	return path, nil
}
