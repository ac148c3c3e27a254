// Package embed defines the voice-embedding backend surface and its
// HTTP implementation. One call turns one audio excerpt into one
// fixed-length vector.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"meeting-transcription-service/internal/models"
)

// Backend computes a voice embedding for one audio excerpt.
type Backend interface {
	Embed(ctx context.Context, audioPath string) ([]float32, error)
}

// HTTPClient calls an embedding service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Embed uploads the excerpt and returns its vector. Transient
// classification matches the diarization client: network failures and
// 5xx are retryable, 4xx is not.
func (c *HTTPClient) Embed(ctx context.Context, audioPath string) ([]float32, error) {
	body, contentType, err := multipartFile(audioPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", body)
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed call: %v: %w", err, models.ErrTransientBackend)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("embed backend returned %d: %w", resp.StatusCode, models.ErrTransientBackend)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed backend returned %d: %s", resp.StatusCode, raw)
	}

	var wire struct {
		Vector []float32 `json:"vector"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(wire.Vector) == 0 {
		return nil, fmt.Errorf("embed backend returned empty vector: %w", models.ErrMalformedRecord)
	}
	return wire.Vector, nil
}

func multipartFile(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open audio excerpt: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio excerpt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Mock is a fixed-answer backend for tests.
type Mock struct {
	Vector []float32
	Err    error
}

// Embed returns the configured vector or error.
func (m *Mock) Embed(ctx context.Context, audioPath string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}
