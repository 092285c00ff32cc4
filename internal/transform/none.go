package transform

import (
	"context"
	"errors"

	"zengallery/internal/gallery"
)

// ErrDisabled is returned by the disabled transformer. Callers treat it like
// any other transform failure and serve the original object.
var ErrDisabled = errors.New("image transformation is disabled")

// NoneTransformer is used when no transform service is configured. Every
// request fails, so derived variants are never produced and reads always
// fall back to the original.
type NoneTransformer struct{}

func (NoneTransformer) Compress(ctx context.Context, data []byte, spec gallery.TransformSpec) (*gallery.TransformResult, error) {
	return nil, ErrDisabled
}

// Compile-time check that NoneTransformer implements the Transformer interface
var _ gallery.Transformer = NoneTransformer{}
