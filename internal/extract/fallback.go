package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"claimlens/internal/domain"
	"claimlens/internal/port"
)

// circuitState tracks rate-limit backoff for a single strategy.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackExtractor tries strategies in order, skipping those with open
// circuits. A transient failure gets at most maxRetries extra attempts on
// the same strategy before moving on; a rate limit opens the strategy's
// circuit and moves on immediately. Confidences proposed by a
// fallback-method strategy are capped at ceiling. It implements
// port.FieldExtractor.
type FallbackExtractor struct {
	strategies []port.FieldExtractor
	circuits   []*circuitState
	names      []string
	maxRetries int
	ceiling    float64
}

// NewFallbackExtractor creates a FallbackExtractor from an ordered list
// of strategies and their names.
func NewFallbackExtractor(strategies []port.FieldExtractor, names []string, maxRetries int, ceiling float64) *FallbackExtractor {
	circuits := make([]*circuitState, len(strategies))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &FallbackExtractor{
		strategies: strategies,
		circuits:   circuits,
		names:      names,
		maxRetries: maxRetries,
		ceiling:    ceiling,
	}
}

func (f *FallbackExtractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, s := range f.strategies {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("extract.FallbackExtractor: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := f.tryStrategy(ctx, i, s, input)
		if err == nil {
			f.capFallbackConfidence(out)
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extract.FallbackExtractor: %w", ctx.Err())
		}

		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		// every strategy was either skipped or rate limited
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all extraction strategies rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all extraction strategies failed: %w", lastErr)
}

// tryStrategy runs one strategy with bounded retries. Rate limits and
// context cancellation are never retried.
func (f *FallbackExtractor) tryStrategy(ctx context.Context, idx int, s port.FieldExtractor, input port.ExtractInput) (*port.ExtractOutput, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		out, err := s.Extract(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err
		log.Printf("extract.FallbackExtractor: %s attempt %d failed: %v", f.names[idx], attempt+1, err)

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (f *FallbackExtractor) capFallbackConfidence(out *port.ExtractOutput) {
	if f.ceiling <= 0 {
		return
	}
	for i := range out.Fields {
		if out.Fields[i].Method == domain.MethodFallback && out.Fields[i].Confidence > f.ceiling {
			out.Fields[i].Confidence = f.ceiling
		}
	}
	for i := range out.LineItems {
		if out.LineItems[i].Method == domain.MethodFallback && out.LineItems[i].Confidence > f.ceiling {
			out.LineItems[i].Confidence = f.ceiling
		}
	}
}
