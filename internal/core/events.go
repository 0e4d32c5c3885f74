package core

import (
	"context"
	"slices"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

// Follow feeds container events into the session until the stream closes or
// ctx is done. A closed stream leaves the session on polling alone.
func (s *Session) Follow(ctx context.Context, events <-chan domain.ContainerEvent) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				s.logger.Info().Msg("Container event stream closed, falling back to polling")
				return nil
			}
			s.Notify(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Notify asks the loop for an early refresh when ev concerns a service of
// the active configuration. It never blocks.
func (s *Session) Notify(ev domain.ContainerEvent) {
	snap := s.store.Snapshot()
	if snap.State == state.NotActive || !slices.Contains(domain.ServiceNames(snap.Services), ev.Name) {
		return
	}
	s.logger.Debug().Str("container", ev.Name).Str("action", string(ev.Action)).Msg("Container event, refreshing early")
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}
