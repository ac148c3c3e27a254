// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meeting-transcription-service/internal/models"
)

// Adapter implements stt.Transcriber using Google Cloud Speech-to-Text
// asynchronous (long-running) recognition with word-level time offsets.
type Adapter struct {
	client       *speech.Client
	languageCode string
	sampleRateHz int
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, languageCode string, sampleRateHz int) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client:       c,
		languageCode: languageCode,
		sampleRateHz: sampleRateHz,
	}, nil
}

// Transcribe runs long-running recognition over the complete recording
// and returns one unit per recognized word, in start order.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptionUnit, error) {
	audio, err := a.audioSource(audioPath)
	if err != nil {
		return nil, err
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:       int32(a.sampleRateHz),
			LanguageCode:          a.languageCode,
			EnableWordTimeOffsets: true,
		},
		Audio: audio,
	}

	op, err := a.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, classify(err)
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, classify(err)
	}

	return unitsFromResponse(resp), nil
}

// Close releases the underlying client connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// audioSource accepts either a gs:// URI or a local file path.
func (a *Adapter) audioSource(audioPath string) (*speechpb.RecognitionAudio, error) {
	if strings.HasPrefix(audioPath, "gs://") {
		return &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: audioPath},
		}, nil
	}
	content, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio %s: %w", audioPath, err)
	}
	return &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
	}, nil
}

// unitsFromResponse flattens word-level alternatives into ordered units.
func unitsFromResponse(resp *speechpb.LongRunningRecognizeResponse) []models.TranscriptionUnit {
	var units []models.TranscriptionUnit
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		best := alts[0]
		for _, w := range best.GetWords() {
			units = append(units, models.TranscriptionUnit{
				Text:  w.GetWord(),
				Start: w.GetStartTime().AsDuration().Seconds(),
				End:   w.GetEndTime().AsDuration().Seconds(),
			})
		}
		// Some languages return no word offsets; fall back to one unit
		// per result spanning the result's end time.
		if len(best.GetWords()) == 0 && best.GetTranscript() != "" {
			end := result.GetResultEndTime().AsDuration().Seconds()
			units = append(units, models.TranscriptionUnit{
				Text:  best.GetTranscript(),
				Start: end,
				End:   end,
			})
		}
	}
	sort.SliceStable(units, func(i, j int) bool { return units[i].Start < units[j].Start })
	return units
}

// classify maps gRPC status codes onto the engine's error taxonomy so
// the call site can decide whether to retry.
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return fmt.Errorf("google speech: %s: %w", st.Message(), models.ErrTransientBackend)
	default:
		return err
	}
}
