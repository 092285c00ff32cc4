package transform

import (
	"fmt"
	"time"

	"zengallery/internal/config"
	"zengallery/internal/gallery"
)

// NewTransformerFromConfig creates the appropriate Transformer based on the
// provided configuration.
func NewTransformerFromConfig(cfg config.TransformConfig) (gallery.Transformer, error) {
	switch cfg.Type {
	case "remote":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("remote transformer requires endpoint")
		}
		return NewRemoteTransformer(cfg.Endpoint, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	case "none", "":
		return NoneTransformer{}, nil
	default:
		return nil, fmt.Errorf("unknown transformer type: %s", cfg.Type)
	}
}
