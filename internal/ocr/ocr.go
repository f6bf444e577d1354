// Package ocr turns normalized frames into text.
package ocr

import (
	"context"
	"errors"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
	"github.com/GriffinCanCode/encounter-tracker/internal/resilience"
)

// Engine recognizes the text in a frame.
type Engine interface {
	Recognize(ctx context.Context, buf *frame.Buffer) (string, error)
}

// Recognizer is a remote OCR service taking PNG bytes.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// RemoteEngine sends frames to a Recognizer, retrying transient failures
// behind a circuit breaker.
type RemoteEngine struct {
	client  Recognizer
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

func NewRemoteEngine(client Recognizer) *RemoteEngine {
	retry := resilience.RemoteRetryConfig()
	retry.IsRetryable = func(err error) bool {
		return !errors.Is(err, resilience.ErrOpen) && resilience.IsRetryableGRPC(err)
	}
	return &RemoteEngine{
		client:  client,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: "ocr"}),
		retry:   retry,
	}
}

func (e *RemoteEngine) Recognize(ctx context.Context, buf *frame.Buffer) (string, error) {
	png, err := buf.PNG()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailure, "encode frame")
	}

	text, err := resilience.Do(ctx, e.retry, func() (string, error) {
		return resilience.Call(e.breaker, func() (string, error) {
			return e.client.Recognize(ctx, png)
		})
	})
	if errors.Is(err, resilience.ErrOpen) {
		return "", apperrors.Wrap(err, apperrors.CodeUnavailable, "ocr service circuit open")
	}
	if err != nil {
		return "", apperrors.FromGRPCError(err, apperrors.CodeOCRFailure)
	}
	return text, nil
}
