// Package vision extracts raw text from receipt images using the
// Google Cloud Vision API.
package vision

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured means no API key was provided at startup.
	ErrNotConfigured = errors.New("vision: api key not configured")
	// ErrNoText means the provider saw the image but found no text in it.
	ErrNoText = errors.New("vision: no text detected in image")
	// ErrProvider wraps upstream API failures.
	ErrProvider = errors.New("vision: provider request failed")
)

// TextRecognizer turns raw image bytes into the text printed on them.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}
