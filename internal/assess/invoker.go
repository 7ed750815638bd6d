package assess

import "context"

// Backend abstracts the speech-recognition capability: it takes audio plus a
// scoring config and returns the raw assessment or a backend error variant.
type Backend interface {
	Assess(ctx context.Context, wav []byte, cfg ScoringConfig) (RawAssessment, error)
}

// Invoker submits audio to a backend for pronunciation assessment. It holds
// no per-request state and is safe for concurrent use.
type Invoker struct {
	backend Backend
}

func NewInvoker(backend Backend) *Invoker {
	return &Invoker{backend: backend}
}

// Invoke validates cfg and performs exactly one backend call. No retries:
// transient failures surface to the caller unchanged.
func (i *Invoker) Invoke(ctx context.Context, wav []byte, cfg ScoringConfig) (RawAssessment, error) {
	if err := cfg.Validate(); err != nil {
		return RawAssessment{}, err
	}
	return i.backend.Assess(ctx, wav, cfg)
}
