package diarize

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

// HTTPClient calls a diarization service over HTTP. The request is a
// multipart upload of the chunk wav; the response is JSON with
// chunk-relative segments and optional per-label embeddings.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the given base URL. The caller
// controls timeouts through the request context; the embedded client
// carries none of its own.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type wireSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker int     `json:"speaker"`
}

type wireEmbedding struct {
	Speaker int       `json:"speaker"`
	Vector  []float32 `json:"vector"`
}

type wireResponse struct {
	Segments   []wireSegment   `json:"segments"`
	Embeddings []wireEmbedding `json:"embeddings"`
}

// Diarize uploads the chunk and decodes the backend's answer. Network
// failures, timeouts and 5xx answers are transient; a 4xx answer is
// permanent.
func (c *HTTPClient) Diarize(ctx context.Context, audioPath string) (Result, error) {
	body, contentType, err := multipartFile(audioPath)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/diarize", body)
	if err != nil {
		return Result{}, fmt.Errorf("build diarize request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("diarize call: %v: %w", err, models.ErrTransientBackend)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{}, fmt.Errorf("diarize backend returned %d: %w", resp.StatusCode, models.ErrTransientBackend)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("diarize backend returned %d: %s", resp.StatusCode, raw)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Result{}, fmt.Errorf("decode diarize response: %w", err)
	}
	return fromWire(wire), nil
}

func fromWire(wire wireResponse) Result {
	res := Result{
		Segments:   make([]models.DiarizationSegment, 0, len(wire.Segments)),
		Embeddings: make([]models.SpeakerEmbedding, 0, len(wire.Embeddings)),
	}
	for _, s := range wire.Segments {
		res.Segments = append(res.Segments, models.DiarizationSegment{
			Start:        s.Start,
			End:          s.End,
			LocalSpeaker: s.Speaker,
		})
	}
	for _, e := range wire.Embeddings {
		res.Embeddings = append(res.Embeddings, models.SpeakerEmbedding{
			LocalSpeaker: e.Speaker,
			Vector:       e.Vector,
		})
	}
	return res
}

// multipartFile reads path into a multipart body under the "audio"
// field. Chunk slices are bounded, so buffering one in memory is fine.
func multipartFile(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open audio slice: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio slice: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
