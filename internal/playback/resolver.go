package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFallbackMs is used for auto items whose probe fails
	DefaultFallbackMs int64 = 10000

	defaultProbeConcurrency = 4
)

// Prober discovers the length of a media source in milliseconds.
// Implementations must release anything they allocate before returning.
type Prober interface {
	ProbeDuration(ctx context.Context, src string) (int64, error)
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, src string) (int64, error)

// ProbeDuration calls f(ctx, src)
func (f ProberFunc) ProbeDuration(ctx context.Context, src string) (int64, error) {
	return f(ctx, src)
}

// DurationCache stores successful probe results across generations.
// A nil cache disables caching.
type DurationCache interface {
	Get(ctx context.Context, src string) (int64, bool)
	Set(ctx context.Context, src string, durationMs int64)
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithFallback overrides the duration substituted for failed probes
func WithFallback(ms int64) ResolverOption {
	return func(r *Resolver) {
		if ms > 0 {
			r.fallbackMs = ms
		}
	}
}

// WithConcurrency bounds the number of probes in flight
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCache enables cross-generation reuse of successful probe results
func WithCache(cache DurationCache) ResolverOption {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// Resolver computes effective durations for a playlist.
type Resolver struct {
	prober      Prober
	cache       DurationCache
	fallbackMs  int64
	concurrency int
}

// NewResolver creates a resolver backed by the given probe capability
func NewResolver(prober Prober, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		prober:      prober,
		fallbackMs:  DefaultFallbackMs,
		concurrency: defaultProbeConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns an effective duration for every item. Declared durations are
// converted directly; auto video items are probed concurrently and fall back to the
// configured duration on failure. Resolve only returns once every item has an entry.
func (r *Resolver) Resolve(ctx context.Context, items []PlaylistItem) Durations {
	durations := make(Durations, len(items))
	var probes []PlaylistItem
	seen := make(map[string]bool)

	for _, item := range items {
		switch {
		case !item.Duration.Auto:
			durations[item.ID] = item.Duration.Milliseconds()
		case item.NeedsProbe():
			if !seen[item.ID] {
				seen[item.ID] = true
				probes = append(probes, item)
			}
		default:
			logger.Log.Warn().
				Str("item_id", item.ID).
				Str("content_type", string(item.ContentType)).
				Int64("fallback_ms", r.fallbackMs).
				Msg("Auto duration is only supported for video items, using fallback")
			durations[item.ID] = r.fallbackMs
		}
	}

	if len(probes) == 0 {
		return durations
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, item := range probes {
		g.Go(func() error {
			ms := r.probeOne(ctx, item)
			mu.Lock()
			durations[item.ID] = ms
			mu.Unlock()
			return nil
		})
	}

	// Tasks never return errors; Wait is the settlement barrier.
	_ = g.Wait()

	return durations
}

// probeOne resolves one auto item, never failing
func (r *Resolver) probeOne(ctx context.Context, item PlaylistItem) int64 {
	if r.cache != nil {
		if ms, ok := r.cache.Get(ctx, item.ContentPath); ok {
			metrics.ProbesTotal.WithLabelValues(metrics.ProbeOutcomeCached).Inc()
			return ms
		}
	}

	ms, err := r.probe(ctx, item.ContentPath)
	if err != nil && ctx.Err() != nil {
		// Superseded generation; its result is discarded at commit.
		return r.fallbackMs
	}
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("item_id", item.ID).
			Str("content_path", item.ContentPath).
			Int64("fallback_ms", r.fallbackMs).
			Msg("Failed to detect video duration, using fallback")
		metrics.ProbesTotal.WithLabelValues(metrics.ProbeOutcomeFallback).Inc()
		return r.fallbackMs
	}

	metrics.ProbesTotal.WithLabelValues(metrics.ProbeOutcomeSuccess).Inc()
	if r.cache != nil {
		r.cache.Set(ctx, item.ContentPath, ms)
	}
	return ms
}

// probe calls the prober, normalising panics, missing probers and bogus results into errors
func (r *Resolver) probe(ctx context.Context, src string) (ms int64, err error) {
	if r.prober == nil {
		return 0, fmt.Errorf("%w: no prober configured", ErrProbeFailed)
	}

	start := time.Now()
	defer func() {
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			ms, err = 0, fmt.Errorf("%w: panic: %v", ErrProbeFailed, rec)
		}
	}()

	ms, err = r.prober.ProbeDuration(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if ms <= 0 {
		return 0, fmt.Errorf("%w: non-positive duration %d", ErrProbeFailed, ms)
	}
	if ms > MaxItemDurationMs {
		return 0, fmt.Errorf("%w: duration %d ms exceeds %d ms", ErrProbeFailed, ms, MaxItemDurationMs)
	}
	return ms, nil
}
