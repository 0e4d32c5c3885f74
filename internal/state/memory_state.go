package state

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

// Store holds the session's Snapshot in memory. It is only mutated through
// Dispatch.
type Store struct {
	mu     sync.RWMutex
	snap   Snapshot
	now    func() time.Time
	logger zerolog.Logger
}

// NewStore creates a store in NOT_ACTIVE for the given configuration.
func NewStore(configuration string, services []domain.ServiceConfiguration, logger zerolog.Logger) *Store {
	return newStore(configuration, services, time.Now, logger)
}

func newStore(configuration string, services []domain.ServiceConfiguration, now func() time.Time, logger zerolog.Logger) *Store {
	return &Store{
		snap: Snapshot{
			State:         NotActive,
			Configuration: configuration,
			Services:      services,
			Since:         now(),
		},
		now:    now,
		logger: logger,
	}
}

// Dispatch applies e and returns the resulting snapshot.
func (s *Store) Dispatch(e Event) Snapshot {
	snap, _ := s.Transit(e)
	return snap
}

// Transit applies e like Dispatch and also reports whether the lifecycle
// state changed.
func (s *Store) Transit(e Event) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snap.State
	next := Transition(s.snap, e)
	if next.State != prev {
		next.Since = s.now()
		s.logger.Info().
			Str("event", string(e.Type())).
			Str("from", prev.String()).
			Str("to", next.State.String()).
			Msg("State transition")
	} else {
		s.logger.Trace().Str("event", string(e.Type())).Str("state", prev.String()).Msg("Event applied")
	}
	s.snap = next
	return next.clone(), next.State != prev
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

func (s *Store) State() AlfrescoState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.State
}
