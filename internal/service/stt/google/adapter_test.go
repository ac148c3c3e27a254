package google

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"meeting-transcription-service/internal/models"
)

func word(w string, startMs, endMs int64) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:      w,
		StartTime: durationpb.New(time.Duration(startMs) * time.Millisecond),
		EndTime:   durationpb.New(time.Duration(endMs) * time.Millisecond),
	}
}

func TestUnitsFromResponse_WordOffsets(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{
						Transcript: "hello world",
						Words: []*speechpb.WordInfo{
							word("hello", 0, 400),
							word("world", 500, 900),
						},
					},
				},
			},
		},
	}

	units := unitsFromResponse(resp)

	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].Text != "hello" || units[1].Text != "world" {
		t.Errorf("unexpected texts: %q %q", units[0].Text, units[1].Text)
	}
	if units[0].Start != 0 || units[0].End != 0.4 {
		t.Errorf("unexpected first unit times: %v-%v", units[0].Start, units[0].End)
	}
	if units[1].Start != 0.5 {
		t.Errorf("unexpected second unit start: %v", units[1].Start)
	}
}

func TestUnitsFromResponse_SortedByStart(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{Words: []*speechpb.WordInfo{word("later", 5000, 5400)}},
				},
			},
			{
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{Words: []*speechpb.WordInfo{word("earlier", 1000, 1400)}},
				},
			},
		},
	}

	units := unitsFromResponse(resp)

	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].Text != "earlier" {
		t.Errorf("expected units sorted by start, got %q first", units[0].Text)
	}
}

func TestUnitsFromResponse_EmptyAndNoAlternatives(t *testing.T) {
	if got := unitsFromResponse(&speechpb.LongRunningRecognizeResponse{}); len(got) != 0 {
		t.Errorf("expected no units from empty response, got %d", len(got))
	}

	resp := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{{}},
	}
	if got := unitsFromResponse(resp); len(got) != 0 {
		t.Errorf("expected no units from result without alternatives, got %d", len(got))
	}
}

func TestClassify_TransientCodes(t *testing.T) {
	transient := []codes.Code{
		codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal,
	}
	for _, c := range transient {
		err := classify(status.Error(c, "boom"))
		if !models.IsTransient(err) {
			t.Errorf("expected %v to classify as transient, got %v", c, err)
		}
	}
}

func TestClassify_PermanentCodes(t *testing.T) {
	permanent := []codes.Code{
		codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.Unauthenticated,
	}
	for _, c := range permanent {
		err := classify(status.Error(c, "boom"))
		if models.IsTransient(err) {
			t.Errorf("expected %v to stay permanent, got transient", c)
		}
	}
}

func TestClassify_NonStatusError(t *testing.T) {
	plain := errors.New("plain error")
	if got := classify(plain); models.IsTransient(got) {
		t.Errorf("expected plain error to stay permanent")
	}
}
