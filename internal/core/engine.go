package core

import (
	"context"
	"time"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
	"github.com/alfresco/alfresco-orchestrator/internal/util"
)

// Loop keeps the lifecycle state in step with the engine until ctx is done.
// Images are re-checked while installing, containers in every other non-idle
// state.
func (s *Session) Loop(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.cfg.PollInterval).Msg("Starting session loop")

	// Pick up images and containers left by an earlier session.
	s.Refresh(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.nudge:
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info().Msg("Session loop shutting down")
			return ctx.Err()
		}
	}
}

// Refresh re-reads both image and container state once.
func (s *Session) Refresh(ctx context.Context) {
	s.refreshImages(ctx)
	s.refreshServices(ctx)
}

func (s *Session) tick(ctx context.Context) {
	st := s.store.State()
	switch {
	case st == state.NotActive:
		return
	case state.IsInstalling(st):
		s.refreshImages(ctx)
	case s.busy.Load():
		s.logger.Trace().Str("state", st.String()).Msg("Orchestration in flight, skipping refresh")
	default:
		s.refreshServices(ctx)
	}
	s.checkStartupDeadline()
}

func (s *Session) refreshImages(ctx context.Context) {
	services := s.store.Snapshot().Services
	report, err := s.images.Present(ctx, services)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Image refresh failed")
		return
	}
	s.store.Dispatch(state.RefreshImageState{Missing: report.Missing})
}

func (s *Session) refreshServices(ctx context.Context) {
	services := s.store.Snapshot().Services
	rows, errs, err := s.collectRows(ctx, services)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Container refresh failed")
		return
	}
	s.store.Dispatch(state.RefreshServiceState{Rows: rows, Errors: errs})
}

func (s *Session) checkStartupDeadline() {
	if s.cfg.StartupTimeout <= 0 {
		return
	}
	snap := s.store.Snapshot()
	if snap.State != state.Starting || s.now().Sub(snap.Since) <= s.cfg.StartupTimeout {
		return
	}
	pending := pendingServices(snap.Services, snap.Rows)
	s.logger.Error().Dur("timeout", s.cfg.StartupTimeout).Strs("pending", pending).Msg("Startup deadline exceeded")
	s.store.Dispatch(state.ErrorObserved{Err: NewStartupTimeoutError(s.cfg.StartupTimeout, pending)})
}

func pendingServices(services []domain.ServiceConfiguration, rows []domain.Row) []string {
	ready := make(map[string]bool, len(rows))
	for _, r := range rows {
		ready[r.Name] = r.State == string(domain.StatusReady)
	}
	return domain.ServiceNames(util.Filter(services, func(svc domain.ServiceConfiguration) bool {
		return !ready[svc.Service]
	}))
}

// Await polls the store until done reports true or ctx ends.
func (s *Session) Await(ctx context.Context, done func(state.Snapshot) bool) (state.Snapshot, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		snap := s.store.Snapshot()
		if done(snap) {
			return snap, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

