package ocr

import (
	"context"
	"image"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
	"github.com/GriffinCanCode/encounter-tracker/internal/resilience"
)

type scriptedRecognizer struct {
	calls   int
	replies []error
}

func (s *scriptedRecognizer) Recognize(ctx context.Context, png []byte) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.replies) && s.replies[i] != nil {
		return "", s.replies[i]
	}
	return "A wild Zubat appeared!", nil
}

func fastEngine(r Recognizer) *RemoteEngine {
	e := NewRemoteEngine(r)
	e.retry.Backoff = resilience.FixedBackoff(0)
	return e
}

func testFrame() *frame.Buffer {
	return frame.FromImage(image.NewNRGBA(image.Rect(0, 0, 4, 4)))
}

func TestRemoteEngineRetriesUnavailable(t *testing.T) {
	r := &scriptedRecognizer{replies: []error{status.Error(codes.Unavailable, "warming up")}}
	e := fastEngine(r)

	text, err := e.Recognize(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if text != "A wild Zubat appeared!" || r.calls != 2 {
		t.Errorf("Recognize() = %q after %d calls", text, r.calls)
	}
}

func TestRemoteEngineDoesNotRetryInternal(t *testing.T) {
	r := &scriptedRecognizer{replies: []error{status.Error(codes.Internal, "crash")}}
	e := fastEngine(r)

	_, err := e.Recognize(context.Background(), testFrame())
	if !apperrors.IsCode(err, apperrors.CodeOCRFailure) {
		t.Errorf("Recognize() error = %v, want OCR_FAILURE", err)
	}
	if r.calls != 1 {
		t.Errorf("calls = %d, want 1", r.calls)
	}
}

func TestRemoteEngineOpensBreaker(t *testing.T) {
	down := status.Error(codes.Internal, "down")
	r := &scriptedRecognizer{replies: []error{down, down, down, down, down, down, down}}
	e := fastEngine(r)

	for range resilience.DefaultThreshold {
		e.Recognize(context.Background(), testFrame())
	}
	_, err := e.Recognize(context.Background(), testFrame())

	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("Recognize() error = %v, want UNAVAILABLE", err)
	}
	if r.calls != resilience.DefaultThreshold {
		t.Errorf("calls = %d, want %d", r.calls, resilience.DefaultThreshold)
	}
}
