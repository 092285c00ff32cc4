package testutil

import (
	"context"
	"fmt"
	"sync"

	"zengallery/internal/gallery"
)

// StubTransformer is a Transformer that records its calls and returns a
// canned per-level payload. Safe for concurrent use.
type StubTransformer struct {
	mu    sync.Mutex
	calls []gallery.TransformSpec

	// Err, when set, is returned from every Compress call.
	Err error
}

// NewStubTransformer creates a StubTransformer.
func NewStubTransformer() *StubTransformer {
	return &StubTransformer{}
}

// Compress records the call and returns deterministic bytes derived from the
// spec, so tests can tell variants apart from the original.
func (s *StubTransformer) Compress(_ context.Context, data []byte, spec gallery.TransformSpec) (*gallery.TransformResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, spec)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	out := fmt.Appendf(nil, "compressed-%dx%d-q%d:%d", spec.Width, spec.Height, spec.Quality, len(data))
	return &gallery.TransformResult{Data: out, MimeType: "image/jpeg"}, nil
}

// Calls returns the specs Compress has been invoked with.
func (s *StubTransformer) Calls() []gallery.TransformSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gallery.TransformSpec, len(s.calls))
	copy(out, s.calls)
	return out
}
