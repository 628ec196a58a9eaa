// Package schedule keeps one playback scheduler per section and turns the section
// clock into playback snapshots.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/metrics"
	"github.com/stwalsh4118/vitrine/internal/models"
	"github.com/stwalsh4118/vitrine/internal/playback"
)

const defaultSettleTimeout = 10 * time.Second

// Snapshot status values
const (
	StatusPlaying    = "playing"
	StatusEmpty      = "empty"
	StatusNotStarted = "not_started"
)

// ErrRegistryClosed is returned once Close has been called
var ErrRegistryClosed = errors.New("schedule registry closed")

// Store loads sections and their playlists
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Section, error)
	GetPlaylist(ctx context.Context, sectionID uuid.UUID) ([]playback.PlaylistItem, error)
}

// Snapshot is the playback state of a section at one instant
type Snapshot struct {
	SectionID       uuid.UUID                   `json:"section_id"`
	Generation      uint64                      `json:"generation"`
	Status          string                      `json:"status"`
	ElapsedMs       int64                       `json:"elapsed_ms"`
	TotalDurationMs int64                       `json:"total_duration_ms"`
	Position        *playback.Position          `json:"position,omitempty"`
	Items           []playback.MaterializedItem `json:"items"`
}

// Option configures a Registry
type Option func(*Registry)

// WithSettleTimeout bounds how long State waits for a first settlement
func WithSettleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.settleTimeout = d
		}
	}
}

// WithClock overrides the time source used for the section clock
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry owns the schedulers of all sections that have been requested or edited
type Registry struct {
	store         Store
	resolver      *playback.Resolver
	settleTimeout time.Duration
	now           func() time.Time
	log           zerolog.Logger

	mu         sync.Mutex
	schedulers map[uuid.UUID]*playback.Scheduler
	closed     bool
}

// NewRegistry creates a registry loading playlists from store
func NewRegistry(store Store, resolver *playback.Resolver, opts ...Option) *Registry {
	r := &Registry{
		store:         store,
		resolver:      resolver,
		settleTimeout: defaultSettleTimeout,
		now:           time.Now,
		log:           logger.With("schedule"),
		schedulers:    make(map[uuid.UUID]*playback.Scheduler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the snapshot of a section. When elapsedMs is nil the section clock
// (now minus the section start time) is used. The first request for a section waits
// for its durations to settle, bounded by ctx and the settle timeout.
func (r *Registry) State(ctx context.Context, sectionID uuid.UUID, elapsedMs *int64) (*Snapshot, error) {
	section, err := r.store.GetByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	sched, err := r.scheduler(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	elapsed := section.ElapsedMs(r.now())
	if elapsedMs != nil {
		elapsed = *elapsedMs
	}

	state, err := sched.State(elapsed)
	if errors.Is(err, playback.ErrNotSettled) {
		waitCtx, cancel := context.WithTimeout(ctx, r.settleTimeout)
		waitErr := sched.WaitSettled(waitCtx)
		cancel()
		if waitErr != nil {
			return nil, fmt.Errorf("%w: %w", playback.ErrNotSettled, waitErr)
		}
		state, err = sched.State(elapsed)
	}

	snapshot := &Snapshot{
		SectionID:       sectionID,
		Generation:      state.Generation,
		ElapsedMs:       elapsed,
		TotalDurationMs: state.TotalDurationMs,
		Items:           state.Items,
	}
	if snapshot.Items == nil {
		snapshot.Items = []playback.MaterializedItem{}
	}

	switch {
	case err == nil:
		pos := state.Position
		snapshot.Status = StatusPlaying
		snapshot.Position = &pos
	case errors.Is(err, playback.ErrEmptySequence):
		snapshot.Status = StatusEmpty
	case errors.Is(err, playback.ErrNotStarted):
		snapshot.Status = StatusNotStarted
	default:
		return nil, err
	}

	return snapshot, nil
}

// PlaylistChanged starts a new generation for a section whose playlist was replaced
func (r *Registry) PlaylistChanged(sectionID uuid.UUID, items []playback.PlaylistItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	sched, ok := r.schedulers[sectionID]
	if !ok {
		sched = r.addLocked(sectionID)
	}
	gen := sched.SetPlaylist(items)

	r.log.Info().
		Str("section_id", sectionID.String()).
		Uint64("generation", gen).
		Int("items", len(items)).
		Msg("Section playlist refreshed")
}

// SectionDeleted drops the scheduler of a deleted section
func (r *Registry) SectionDeleted(sectionID uuid.UUID) {
	r.mu.Lock()
	sched, ok := r.schedulers[sectionID]
	delete(r.schedulers, sectionID)
	r.mu.Unlock()

	if !ok {
		return
	}
	sched.Close()
	metrics.ActiveSchedulers.Dec()

	r.log.Info().
		Str("section_id", sectionID.String()).
		Msg("Section scheduler dropped")
}

// Loaded reports whether a scheduler exists for the section
func (r *Registry) Loaded(sectionID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.schedulers[sectionID]
	return ok
}

// Close stops every scheduler. Further State calls fail with ErrRegistryClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	schedulers := r.schedulers
	r.schedulers = make(map[uuid.UUID]*playback.Scheduler)
	r.mu.Unlock()

	for _, sched := range schedulers {
		sched.Close()
		metrics.ActiveSchedulers.Dec()
	}

	r.log.Info().
		Int("schedulers", len(schedulers)).
		Msg("Schedule registry closed")
}

// scheduler returns the section's scheduler, loading its playlist on first use.
// The lock is held while loading so a concurrent PlaylistChanged cannot be
// overwritten by an older stored playlist.
func (r *Registry) scheduler(ctx context.Context, sectionID uuid.UUID) (*playback.Scheduler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if sched, ok := r.schedulers[sectionID]; ok {
		return sched, nil
	}

	items, err := r.store.GetPlaylist(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	sched := r.addLocked(sectionID)
	gen := sched.SetPlaylist(items)

	r.log.Debug().
		Str("section_id", sectionID.String()).
		Uint64("generation", gen).
		Int("items", len(items)).
		Msg("Section scheduler loaded")

	return sched, nil
}

func (r *Registry) addLocked(sectionID uuid.UUID) *playback.Scheduler {
	sched := playback.NewScheduler(r.resolver)
	r.schedulers[sectionID] = sched
	metrics.ActiveSchedulers.Inc()
	return sched
}
