package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/pkg/metrics"
)

// Bounded wraps a Provider with a per-call timeout and metrics. Every
// failure, including an empty reply, is reported as ErrCompletionFailed.
type Bounded struct {
	provider Provider
	timeout  time.Duration
	metrics  metrics.Recorder
}

// NewBounded creates a Bounded provider. A non-positive timeout disables the deadline.
func NewBounded(provider Provider, timeout time.Duration, recorder metrics.Recorder) *Bounded {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Bounded{
		provider: provider,
		timeout:  timeout,
		metrics:  recorder,
	}
}

// Name returns the wrapped provider's name.
func (b *Bounded) Name() string {
	return b.provider.Name()
}

// Complete calls the wrapped provider within the configured timeout.
func (b *Bounded) Complete(ctx context.Context, req *Request) (*Response, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := b.provider.Complete(ctx, req)
	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = errors.New("provider returned empty content")
	}
	if err != nil {
		b.metrics.RecordCompletion(b.provider.Name(), metrics.OutcomeError)
		log.Error().
			Err(err).
			Str("provider", b.provider.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("completion failed")
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrCompletionFailed, err)
	}

	b.metrics.RecordCompletion(b.provider.Name(), metrics.OutcomeSuccess)
	return resp, nil
}
