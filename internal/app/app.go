package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/alfresco/alfresco-orchestrator/internal/api"
	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/core"
	"github.com/alfresco/alfresco-orchestrator/internal/event"
	"github.com/alfresco/alfresco-orchestrator/internal/lock"
	"github.com/alfresco/alfresco-orchestrator/internal/orchestrator"
	"github.com/alfresco/alfresco-orchestrator/internal/probe"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

type App struct {
	gateway    runtime.Gateway
	watcher    *event.DockerWatcher
	etcdClient *clientv3.Client
	session    *core.Session
	server     *api.Server
	logger     zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	// Docker CLI
	dockerClient, err := runtime.NewDockerClient(cfg.Docker)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	var gateway runtime.Gateway = runtime.NewDockerGateway(dockerClient, cfg.Orchestrator.StopTimeout, logger)

	a := &App{
		gateway: gateway,
		watcher: event.NewDockerWatcher(dockerClient, logger),
		logger:  logger,
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Lock.Enabled {
		etcdClient, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.Lock.Endpoints,
			DialTimeout: 2 * time.Second,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		a.etcdClient = etcdClient
		locker = lock.NewEtcdLocker(etcdClient, cfg.Lock, lockOwner(), logger)
	}

	session, err := core.NewSession(
		cfg.App,
		gateway,
		orchestrator.NewDeployer(gateway, cfg.Orchestrator, logger),
		orchestrator.NewShutdowner(gateway, logger),
		orchestrator.NewImageManager(gateway, logger),
		probe.NewProber(gateway, cfg.Probe.Timeout, logger),
		locker,
		runtime.NewBrowserHost(logger),
		logger,
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = session
	a.server = api.NewServer(cfg.API, api.NewSessionHandler(session), logger)
	return a, nil
}

func (a *App) Session() *core.Session {
	return a.session
}

// Serve runs the session loop and the HTTP API until ctx is done or either
// of them fails.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info().Msg("Application starting")
	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(a.session.Loop)
	p.Go(a.server.Run)
	p.Go(a.follow)
	err := p.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) follow(ctx context.Context) error {
	events, err := a.watcher.Subscribe(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Container events unavailable, polling only")
		return nil
	}
	return a.session.Follow(ctx, events)
}

// Close waits for in-flight orchestrations and releases engine and etcd
// connections.
func (a *App) Close() error {
	if a.session != nil {
		a.session.Close()
	}
	var firstErr error
	if a.gateway != nil {
		if err := a.gateway.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close docker client: %w", err)
		}
	}
	if a.etcdClient != nil {
		if err := a.etcdClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close etcd client: %w", err)
		}
	}
	return firstErr
}

func lockOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s/%d", host, os.Getpid())
}
