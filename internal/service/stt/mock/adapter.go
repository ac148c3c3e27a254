// Package mock provides a mock transcription adapter for testing and
// local development without cloud credentials. It returns a scripted
// set of timestamped units regardless of the audio content.
package mock

import (
	"context"
	"sync"

	"meeting-transcription-service/internal/models"
)

// DefaultScript is the unit sequence returned when none is configured.
var DefaultScript = []models.TranscriptionUnit{
	{Text: "Good", Start: 0.2, End: 0.5},
	{Text: "morning", Start: 0.55, End: 1.0},
	{Text: "everyone.", Start: 1.05, End: 1.6},
	{Text: "Let's", Start: 2.4, End: 2.7},
	{Text: "get", Start: 2.75, End: 2.9},
	{Text: "started.", Start: 2.95, End: 3.5},
}

// Adapter implements stt.Transcriber with scripted responses.
type Adapter struct {
	mu     sync.Mutex
	script []models.TranscriptionUnit
	err    error
	calls  int
}

// New creates a mock adapter returning DefaultScript.
func New() *Adapter {
	return &Adapter{script: DefaultScript}
}

// NewScripted creates a mock adapter returning the given units.
func NewScripted(units []models.TranscriptionUnit) *Adapter {
	return &Adapter{script: units}
}

// Fail makes every subsequent Transcribe call return err.
func (a *Adapter) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Calls returns how many times Transcribe was invoked.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Transcribe returns the scripted units, honoring context cancellation.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptionUnit, error) {
	a.mu.Lock()
	a.calls++
	err := a.err
	script := a.script
	a.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := make([]models.TranscriptionUnit, len(script))
	copy(out, script)
	return out, nil
}
