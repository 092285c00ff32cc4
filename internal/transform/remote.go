package transform

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"zengallery/internal/gallery"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// RemoteTransformer compresses images by calling an external transcoding
// service over HTTP. The service receives the raw image bytes and the target
// bounding box and quality as query parameters, and responds with the
// transcoded JPEG bytes.
type RemoteTransformer struct {
	endpoint string
	client   *resty.Client
}

// NewRemoteTransformer creates a transformer backed by the service at
// endpoint. timeout bounds each request; zero selects a default.
func NewRemoteTransformer(endpoint string, timeout time.Duration) *RemoteTransformer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)

	return &RemoteTransformer{
		endpoint: endpoint,
		client:   client,
	}
}

// Compress sends data to the transform service and returns the transcoded
// result. Any failure is returned to the caller, which falls back to the
// original bytes.
func (t *RemoteTransformer) Compress(ctx context.Context, data []byte, spec gallery.TransformSpec) (*gallery.TransformResult, error) {
	response, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetQueryParams(map[string]string{
			"width":   strconv.Itoa(spec.Width),
			"height":  strconv.Itoa(spec.Height),
			"quality": strconv.Itoa(spec.Quality),
		}).
		SetBody(data).
		Post(t.endpoint)
	if err != nil {
		return nil, fmt.Errorf("calling transform service: %w", err)
	}

	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("transform service returned %d: %s", response.StatusCode(), response.String())
	}

	body := response.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("transform service returned empty body")
	}

	mimeType := response.Header().Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return &gallery.TransformResult{Data: body, MimeType: mimeType}, nil
}

// Compile-time check that RemoteTransformer implements the Transformer interface
var _ gallery.Transformer = (*RemoteTransformer)(nil)
