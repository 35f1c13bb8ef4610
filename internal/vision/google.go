package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gvision "google.golang.org/api/vision/v1"
)

// GoogleClient calls the Cloud Vision images:annotate endpoint with
// TEXT_DETECTION. Authentication uses a plain API key.
type GoogleClient struct {
	svc *gvision.Service
}

var _ TextRecognizer = (*GoogleClient)(nil)

// NewGoogleClient builds a Vision client. An empty key returns
// ErrNotConfigured so callers can degrade to a clear error instead of
// failing on the first request.
func NewGoogleClient(ctx context.Context, apiKey string) (*GoogleClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	svc, err := gvision.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("vision service: %w", err)
	}
	return &GoogleClient{svc: svc}, nil
}

func (c *GoogleClient) RecognizeText(ctx context.Context, image []byte) (string, error) {
	req := &gvision.BatchAnnotateImagesRequest{
		Requests: []*gvision.AnnotateImageRequest{
			{
				Image: &gvision.Image{
					Content: base64.StdEncoding.EncodeToString(image),
				},
				Features: []*gvision.Feature{
					{Type: "TEXT_DETECTION"},
				},
			},
		},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(resp.Responses) == 0 {
		return "", ErrNoText
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrProvider, r.Error.Message)
	}
	if r.FullTextAnnotation == nil || strings.TrimSpace(r.FullTextAnnotation.Text) == "" {
		return "", ErrNoText
	}
	return r.FullTextAnnotation.Text, nil
}
