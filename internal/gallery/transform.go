package gallery

import "context"

// Level is a named compression level for derived image variants.
type Level string

const (
	LevelLow  Level = "low"
	LevelMid  Level = "mid"
	LevelHigh Level = "high"
)

// Levels lists every recognized compression level.
func Levels() []Level {
	return []Level{LevelLow, LevelMid, LevelHigh}
}

// ParseLevel validates a level string. Unknown values return ErrInvalidInput;
// callers on the read path degrade to serving the original.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelLow, LevelMid, LevelHigh:
		return Level(s), nil
	}
	return "", ErrInvalidInput
}

// TransformSpec holds the fixed parameters for one compression level:
// a bounding box the image is scaled down into, and a JPEG quality factor.
type TransformSpec struct {
	Width   int
	Height  int
	Quality int
}

// Spec returns the fixed transform parameters for the level.
func (l Level) Spec() TransformSpec {
	switch l {
	case LevelLow:
		return TransformSpec{Width: 720, Height: 720, Quality: 24}
	case LevelMid:
		return TransformSpec{Width: 1080, Height: 1080, Quality: 42}
	default:
		return TransformSpec{Width: 2160, Height: 2160, Quality: 84}
	}
}

// TransformResult is the output of a successful compression.
type TransformResult struct {
	Data     []byte
	MimeType string
}

// Transformer is the external image transcoding boundary. Compress is
// synchronous and produces no partial results; any error means the caller
// serves the original instead.
type Transformer interface {
	Compress(ctx context.Context, data []byte, spec TransformSpec) (*TransformResult, error)
}
