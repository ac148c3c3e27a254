package asyncpoll

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

// HTTPBackend submits recordings to a task-based transcription API:
// POST the audio, then poll the returned task id.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend for the given base URL.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Submit uploads the recording and returns the backend task id.
func (b *HTTPBackend) Submit(ctx context.Context, audioPath string) (string, error) {
	body, contentType, err := multipartFile(audioPath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit call: %v: %w", err, models.ErrTransientBackend)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("submit returned %d: %w", resp.StatusCode, models.ErrTransientBackend)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("submit returned %d: %s", resp.StatusCode, raw)
	}

	var wire struct {
		TaskID string `json:"taskId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if wire.TaskID == "" {
		return "", fmt.Errorf("submit response carried no task id")
	}
	return wire.TaskID, nil
}

// Poll queries one task. Transport failures surface as errors so the
// adapter can treat them as isolated and keep polling.
func (b *HTTPBackend) Poll(ctx context.Context, taskID string) (PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/transcriptions/"+taskID, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("build poll request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("poll call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PollResult{}, fmt.Errorf("poll returned %d", resp.StatusCode)
	}

	var wire struct {
		Status string                     `json:"status"`
		Units  []models.TranscriptionUnit `json:"units"`
		Reason string                     `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return PollResult{}, fmt.Errorf("decode poll response: %w", err)
	}

	switch wire.Status {
	case "completed":
		return PollResult{Status: PollCompleted, Units: wire.Units}, nil
	case "failed":
		return PollResult{Status: PollFailed, Reason: wire.Reason}, nil
	default:
		return PollResult{Status: PollPending}, nil
	}
}

func multipartFile(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read recording: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
