package asyncpoll

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"meeting-transcription-service/internal/models"
)

// PollStatus is the backend's answer to one poll.
type PollStatus int

const (
	PollPending PollStatus = iota
	PollCompleted
	PollFailed
)

// PollResult carries the outcome of one poll attempt.
type PollResult struct {
	Status PollStatus
	Units  []models.TranscriptionUnit // set when Status == PollCompleted
	Reason string                     // set when Status == PollFailed
}

// Backend is the minimal surface of an asynchronous transcription API.
type Backend interface {
	// Submit uploads the recording and returns a backend task id.
	Submit(ctx context.Context, audioPath string) (string, error)

	// Poll queries the task once. A transport error is an isolated
	// poll failure, not a task failure: the adapter retries it.
	Poll(ctx context.Context, taskID string) (PollResult, error)
}

// Adapter implements stt.Transcriber over a poll-based Backend.
type Adapter struct {
	backend  Backend
	interval time.Duration
	maxWait  time.Duration
}

// New creates an adapter polling on the given fixed interval, giving up
// after maxWait.
func New(backend Backend, interval, maxWait time.Duration) *Adapter {
	return &Adapter{
		backend:  backend,
		interval: interval,
		maxWait:  maxWait,
	}
}

// Transcribe submits the recording and polls until the task resolves.
// Isolated poll errors are logged and retried on the next tick; only
// the deadline or a terminal backend answer stops the loop.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptionUnit, error) {
	taskID, err := a.backend.Submit(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	tracker := NewTracker(taskID)
	if err := tracker.BeginPolling(); err != nil {
		return nil, err
	}

	logger := log.With().Str("taskId", taskID).Logger()
	logger.Info().Dur("interval", a.interval).Dur("maxWait", a.maxWait).Msg("Polling transcription task")

	deadline := time.Now().Add(a.maxWait)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			tracker.TimeOut()
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			tracker.TimeOut()
			return nil, fmt.Errorf("task %s exceeded max wait %v: %w", taskID, a.maxWait, models.ErrTransientBackend)
		}

		tracker.RecordPoll()
		res, err := a.backend.Poll(ctx, taskID)
		if err != nil {
			// Isolated poll error: keep polling until the deadline.
			logger.Warn().Err(err).Int("polls", tracker.Polls()).Msg("Poll attempt failed, will retry")
			continue
		}

		switch res.Status {
		case PollCompleted:
			tracker.Complete()
			logger.Info().Int("units", len(res.Units)).Int("polls", tracker.Polls()).Msg("Transcription task completed")
			return res.Units, nil
		case PollFailed:
			tracker.Fail()
			return nil, fmt.Errorf("task %s failed: %s", taskID, res.Reason)
		case PollPending:
			// keep waiting
		}
	}
}
