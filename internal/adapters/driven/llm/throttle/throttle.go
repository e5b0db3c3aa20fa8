// Package throttle wraps a chat provider with client-side rate limiting.
package throttle

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.ChatProvider = (*Provider)(nil)

// DefaultCooldown is the pause after the provider reports rate limiting.
const DefaultCooldown = 20 * time.Second

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or less means unlimited.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size (default: 1).
	BurstSize int
	// Cooldown is how long new requests wait after a rate-limited response.
	Cooldown time.Duration
}

// Provider delays Stream calls to stay under a token-bucket rate, and
// holds all callers back for a cooldown after a rate-limited response.
type Provider struct {
	inner    driven.ChatProvider
	limiter  *rate.Limiter
	cooldown time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// New wraps inner.
func New(inner driven.ChatProvider, cfg Config) *Provider {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Provider{
		inner:    inner,
		limiter:  rate.NewLimiter(limit, cfg.BurstSize),
		cooldown: cfg.Cooldown,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any cooldown set by a rate-limited response.
func (p *Provider) Wait(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return p.limiter.Wait(ctx)
}

// recordRateLimit starts a cooldown.
func (p *Provider) recordRateLimit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retryAt = time.Now().Add(p.cooldown)
}

// Stream waits for a slot, then delegates.
func (p *Provider) Stream(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := p.Wait(ctx); err != nil {
			yield("", &domain.ProviderError{Kind: waitKind(err), Provider: p.inner.ModelName(), Err: err})
			return
		}
		for token, err := range p.inner.Stream(ctx, messages, opts) {
			if err != nil {
				var pe *domain.ProviderError
				if errors.As(err, &pe) && pe.Kind == domain.ProviderErrRateLimited {
					p.recordRateLimit()
				}
				yield("", err)
				return
			}
			if !yield(token, nil) {
				return
			}
		}
	}
}

// waitKind classifies a failed wait. rate.Limiter reports a wait that
// cannot finish before the deadline without wrapping DeadlineExceeded.
func waitKind(err error) domain.ProviderErrorKind {
	if errors.Is(err, context.Canceled) {
		return domain.ProviderErrTransport
	}
	return domain.ProviderErrTimeout
}

// ModelName returns the wrapped model name.
func (p *Provider) ModelName() string {
	return p.inner.ModelName()
}

// Ping is not throttled.
func (p *Provider) Ping(ctx context.Context) error {
	return p.inner.Ping(ctx)
}

// Close closes the wrapped provider.
func (p *Provider) Close() error {
	return p.inner.Close()
}
