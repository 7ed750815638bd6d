package assess

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to the transport layer. ErrInvalidConfig is raised
// before any backend call; the rest are backend failure variants. Unrecognized
// error-type tags during normalization are never errors, only warnings.
var (
	ErrInvalidConfig      = errors.New("invalid scoring config")
	ErrUnauthorized       = errors.New("speech backend rejected credentials")
	ErrServiceUnavailable = errors.New("speech backend unavailable")
	ErrMalformedAudio     = errors.New("audio payload malformed")
	ErrNoSpeech           = errors.New("no speech recognized in audio")
)

func invalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Code returns the stable wire code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, ErrMalformedAudio):
		return "malformed_audio"
	case errors.Is(err, ErrNoSpeech):
		return "no_speech_recognized"
	default:
		return "internal"
	}
}
