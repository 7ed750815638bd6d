// Package speech provides the speech-recognition backends the assessment
// invoker submits audio to.
package speech

import (
	"fmt"

	"github.com/accentlabs/accent-core/internal/assess"
	"github.com/accentlabs/accent-core/internal/config"
)

// New returns the backend selected by cfg.Mode.
func New(cfg config.SpeechConfig) (assess.Backend, error) {
	switch cfg.Mode {
	case "", "mock":
		return NewMockBackend(), nil
	case "azure":
		return NewAzureBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown speech mode %q", cfg.Mode)
	}
}
