// Package tesseract is the in-process OCR engine backed by libtesseract.
package tesseract

import (
	"context"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
)

// Engine serializes access to one tesseract client.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates an engine for the given tesseract language (e.g. "eng").
func New(lang string) (*Engine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, apperrors.Wrapf(err, apperrors.CodeOCRFailure, "set OCR language %q", lang)
	}
	return &Engine{client: client}, nil
}

func (e *Engine) Recognize(ctx context.Context, buf *frame.Buffer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	png, err := buf.PNG()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailure, "encode frame")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(png); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailure, "set image")
	}
	text, err := e.client.Text()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailure, "recognize")
	}
	return text, nil
}

// Close releases the tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
