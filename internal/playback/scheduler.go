package playback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/metrics"
)

// Scheduler owns the playlist generations of one display surface. Each call to
// SetPlaylist with a new slice starts a generation whose durations are resolved in
// the background; only the latest generation is ever committed.
//
// Until the first generation settles State returns ErrNotSettled. While a later
// generation is still resolving, the last committed sequence keeps being served.
type Scheduler struct {
	resolver *Resolver
	log      zerolog.Logger

	mu         sync.RWMutex
	generation uint64
	playlist   []PlaylistItem
	cancel     context.CancelFunc
	settled    chan struct{}

	// committed state, replaced as a whole on settlement
	committedGen uint64
	sequence     []MaterializedItem
	totalMs      int64
	hasCommitted bool

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler that resolves durations with the given resolver
func NewScheduler(resolver *Resolver) *Scheduler {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Scheduler{
		resolver: resolver,
		log:      logger.With("scheduler"),
		settled:  make(chan struct{}),
	}
}

// SetPlaylist starts a new generation for items and returns its number. Passing the
// same slice as the current generation is a no-op. In-flight probes of the previous
// generation are cancelled and whatever they produce is discarded.
func (s *Scheduler) SetPlaylist(items []PlaylistItem) uint64 {
	s.mu.Lock()
	if s.generation > 0 && samePlaylist(s.playlist, items) {
		gen := s.generation
		s.mu.Unlock()
		return gen
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.playlist = items
	if s.isSettledLocked() {
		s.settled = make(chan struct{})
	}
	s.mu.Unlock()

	s.log.Debug().
		Uint64("generation", gen).
		Int("items", len(items)).
		Msg("Starting playlist generation")

	if !needsProbing(items) {
		s.commit(gen, items, s.resolver.Resolve(ctx, items))
		cancel()
		return gen
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		durations := s.resolver.Resolve(ctx, items)
		s.commit(gen, items, durations)
	}()

	return gen
}

// commit installs the materialized sequence of gen if gen is still current
func (s *Scheduler) commit(gen uint64, items []PlaylistItem, durations Durations) bool {
	sequence := Materialize(items, durations)
	total := TotalDuration(sequence)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		metrics.StaleGenerationsTotal.Inc()
		s.log.Debug().
			Uint64("generation", gen).
			Uint64("current_generation", s.generation).
			Msg("Discarding durations of superseded playlist generation")
		return false
	}

	s.committedGen = gen
	s.sequence = sequence
	s.totalMs = total
	s.hasCommitted = true
	close(s.settled)
	metrics.SettlementsTotal.Inc()

	s.log.Info().
		Uint64("generation", gen).
		Int("items", len(sequence)).
		Int64("total_duration_ms", total).
		Msg("Playlist durations settled")

	return true
}

// State projects the committed sequence at elapsedMs.
//
// Returns ErrNotSettled before the first settlement and ErrEmptySequence when there is
// nothing to play; in the latter case the returned State still carries the generation
// and an empty item list.
func (s *Scheduler) State(elapsedMs int64) (State, error) {
	s.mu.RLock()
	gen, sequence, total, ok := s.committedGen, s.sequence, s.totalMs, s.hasCommitted
	s.mu.RUnlock()

	if !ok {
		return State{}, ErrNotSettled
	}

	state := State{
		Generation:      gen,
		Items:           []MaterializedItem{},
		TotalDurationMs: total,
	}

	pos, err := CalculatePosition(sequence, elapsedMs, total)
	if err != nil {
		state.Items = hideAll(sequence)
		return state, err
	}

	state.Items = Project(sequence, pos)
	state.Position = pos
	return state, nil
}

// WaitSettled blocks until the current generation has been committed or ctx is done
func (s *Scheduler) WaitSettled(ctx context.Context) error {
	s.mu.RLock()
	settled := s.settled
	s.mu.RUnlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Generation returns the number of the most recently started generation
func (s *Scheduler) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Settled reports whether the most recently started generation has been committed
func (s *Scheduler) Settled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSettledLocked()
}

// Close cancels in-flight probes and waits for background resolution to finish
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	// Bumping the generation makes any late commit stale.
	s.generation++
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) isSettledLocked() bool {
	select {
	case <-s.settled:
		return true
	default:
		return false
	}
}

// samePlaylist reports whether a and b are the same slice (identity, not contents)
func samePlaylist(a, b []PlaylistItem) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}

// hideAll returns a copy of sequence with nothing visible or preloaded
func hideAll(sequence []MaterializedItem) []MaterializedItem {
	hidden := make([]MaterializedItem, len(sequence))
	for i, item := range sequence {
		item.Hidden = true
		item.Preload = false
		hidden[i] = item
	}
	return hidden
}

func needsProbing(items []PlaylistItem) bool {
	for _, item := range items {
		if item.NeedsProbe() {
			return true
		}
	}
	return false
}
