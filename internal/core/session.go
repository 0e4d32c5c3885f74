// Package core owns the orchestration session: it guards user commands,
// runs orchestrations in the background and keeps the lifecycle state in
// step with the container engine.
package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/lock"
	"github.com/alfresco/alfresco-orchestrator/internal/orchestrator"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

// Session is the single owner of the state store for one orchestrator
// process.
type Session struct {
	cfg        config.AppConfig
	store      *state.Store
	engine     engine
	deployer   deployer
	shutdowner shutdowner
	images     imageManager
	prober     prober
	locker     lock.Locker
	host       runtime.Host
	logger     zerolog.Logger

	now func() time.Time

	// busy is set while a run or stop orchestration is in flight.
	busy     atomic.Bool
	nudge    chan struct{}
	mu       sync.Mutex
	current  *orchestration
	wg       sync.WaitGroup
	lifetime context.Context
	cancel   context.CancelFunc
}

func NewSession(
	cfg config.AppConfig,
	eng engine,
	dep deployer,
	shut shutdowner,
	img imageManager,
	prb prober,
	locker lock.Locker,
	host runtime.Host,
	logger zerolog.Logger,
) (*Session, error) {
	services, err := config.Services(cfg.Configuration)
	if err != nil {
		return nil, err
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:        cfg,
		store:      state.NewStore(cfg.Configuration, services, logger),
		engine:     eng,
		deployer:   dep,
		shutdowner: shut,
		images:     img,
		prober:     prb,
		locker:     locker,
		host:       host,
		logger:     logger,
		now:        time.Now,
		nudge:      make(chan struct{}, 1),
		lifetime:   lifetime,
		cancel:     cancel,
	}, nil
}

func (s *Session) Snapshot() state.Snapshot {
	return s.store.Snapshot()
}

// SelectConfiguration switches to one of the built-in service sets.
func (s *Session) SelectConfiguration(ctx context.Context, name string) (state.Snapshot, error) {
	services, err := config.Services(name)
	if err != nil {
		return state.Snapshot{}, err
	}
	snap := s.store.Snapshot()
	if snap.State != state.NotActive && snap.State != state.Error {
		return snap, NewCommandNotPermittedError("configuration change", snap.State)
	}
	s.store.Dispatch(state.Setup{Configuration: name, Services: services})
	s.logger.Info().Str("configuration", name).Msg("Configuration selected")
	s.refreshImages(ctx)
	return s.store.Snapshot(), nil
}

// Setup downloads the images of the active configuration.
func (s *Session) Setup(ctx context.Context) error {
	snap := s.store.Snapshot()
	if !snap.NeedSetup() {
		return NewCommandNotPermittedError("setup", snap.State)
	}
	release, err := s.locker.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := s.dispatchCommand("setup", state.DownloadImages{}, state.DownloadingImages, release); err != nil {
		return err
	}
	s.spawn("setup", release, func(ctx context.Context) error {
		return s.images.Pull(ctx, snap.Services)
	})
	return nil
}

// Run deploys the active configuration.
func (s *Session) Run(ctx context.Context) error {
	snap := s.store.Snapshot()
	if !state.CanRun(snap.State) {
		return NewCommandNotPermittedError("run", snap.State)
	}
	if !snap.ImagesPresent {
		return ErrImagesMissing
	}
	s.checkMemory(ctx)

	release, err := s.locker.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := s.dispatchCommand("run", state.StartAlfresco{}, state.Starting, release); err != nil {
		return err
	}
	s.spawn("run", release, func(ctx context.Context) error {
		report, err := s.deployer.Deploy(ctx, snap.Services)
		if report != nil {
			s.logger.Info().
				Strs("deployed", report.Services(orchestrator.OutcomeDeployed)).
				Strs("skipped", report.Services(orchestrator.OutcomeSkipped)).
				Msg("Deployment finished")
		}
		return err
	})
	return nil
}

// Stop shuts the active configuration down. Shutdown problems are logged
// only; the next deployment cleans up what is left.
func (s *Session) Stop(ctx context.Context) error {
	snap := s.store.Snapshot()
	if !state.CanStop(snap.State) {
		return NewCommandNotPermittedError("stop", snap.State)
	}
	// A deployment still in flight is cancelled rather than waited for.
	if err := s.preempt(ctx, "run"); err != nil {
		return err
	}
	release, err := s.locker.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := s.dispatchCommand("stop", state.StopAlfresco{}, state.Stopping, release); err != nil {
		return err
	}
	s.spawn("stop", release, func(ctx context.Context) error {
		report := s.shutdowner.Shutdown(ctx, snap.Services)
		for _, err := range report.Errors {
			s.logger.Warn().Err(err).Msg("Shutdown left residual containers")
		}
		return nil
	})
	return nil
}

// OpenApplication opens the content app in the desktop browser.
func (s *Session) OpenApplication(ctx context.Context) error {
	if st := s.store.State(); !state.IsRunning(st) {
		return NewCommandNotPermittedError("open", st)
	}
	if err := s.host.OpenURL(ctx, s.cfg.URL); err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.URL, err)
	}
	return nil
}

// Close cancels in-flight orchestrations and waits for them to return.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// dispatchCommand applies e and verifies the store moved to want. Another
// command may have changed the state between the guard and the lock.
func (s *Session) dispatchCommand(command string, e state.Event, want state.AlfrescoState, release func()) error {
	if snap, moved := s.store.Transit(e); !moved || snap.State != want {
		release()
		return NewCommandNotPermittedError(command, snap.State)
	}
	return nil
}

type orchestration struct {
	command string
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *Session) spawn(command string, release func(), fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(s.lifetime)
	o := &orchestration{command: command, cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.current = o
	s.mu.Unlock()

	s.busy.Store(true)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(o.done)
		defer release()
		defer func() {
			s.mu.Lock()
			if s.current == o {
				s.current = nil
			}
			s.mu.Unlock()
			s.busy.Store(false)
			cancel()
		}()

		s.logger.Debug().Str("command", command).Msg("Orchestration started")
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Str("command", command).Msg("Orchestration interrupted")
				return
			}
			s.logger.Error().Err(err).Str("command", command).Msg("Orchestration failed")
			s.store.Dispatch(state.ErrorObserved{Err: err})
			return
		}
		s.logger.Debug().Str("command", command).Msg("Orchestration finished")
	}()
}

// preempt cancels the in-flight orchestration when it runs command and waits
// until it has released the lock.
func (s *Session) preempt(ctx context.Context, command string) error {
	s.mu.Lock()
	o := s.current
	s.mu.Unlock()
	if o == nil || o.command != command {
		return nil
	}
	s.logger.Info().Str("command", command).Msg("Cancelling in-flight orchestration")
	o.cancel()
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkMemory warns when the engine has less memory than the installation
// needs. It reports whether the engine has enough.
func (s *Session) checkMemory(ctx context.Context) bool {
	want, err := units.RAMInBytes(s.cfg.MinMemory)
	if err != nil || want <= 0 {
		return true
	}
	info, err := s.engine.Info(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Could not read engine info")
		return true
	}
	if info.MemTotal < want {
		s.logger.Warn().
			Str("available", units.BytesSize(float64(info.MemTotal))).
			Str("required", s.cfg.MinMemory).
			Msg("Container engine has less memory than the installation needs")
		return false
	}
	return true
}
