package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/alfresco/alfresco-orchestrator/internal/app"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Supervise the topology and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, _ zerolog.Logger) error {
			return serve(ctx, a)
		})
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Download missing images, deploy every service and wait until ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, log zerolog.Logger) error {
			return supervised(ctx, a.Session(), func(ctx context.Context, s orchestration) error {
				return up(ctx, s, log)
			})
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove every managed container",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, log zerolog.Logger) error {
			return supervised(ctx, a.Session(), func(ctx context.Context, s orchestration) error {
				return down(ctx, s, log)
			})
		})
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Download the images of the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, log zerolog.Logger) error {
			return supervised(ctx, a.Session(), func(ctx context.Context, s orchestration) error {
				return setup(ctx, s, log)
			})
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the orchestration state and the container table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, _ zerolog.Logger) error {
			s := a.Session()
			s.Refresh(ctx)
			return printStatus(ctx, s)
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the content app in the default browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, _ zerolog.Logger) error {
			s := a.Session()
			s.Refresh(ctx)
			return s.OpenApplication(ctx)
		})
	},
}

func serve(ctx context.Context, a application) error {
	if err := a.Serve(ctx); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// supervised refreshes the session, keeps its poll loop running while fn
// executes and stops it before returning.
func supervised(ctx context.Context, s orchestration, fn func(ctx context.Context, s orchestration) error) error {
	s.Refresh(ctx)

	loopCtx, stop := context.WithCancel(ctx)
	var wg conc.WaitGroup
	wg.Go(func() {
		_ = s.Loop(loopCtx)
	})
	defer wg.Wait()
	defer stop()

	return fn(ctx, s)
}

func setup(ctx context.Context, s orchestration, log zerolog.Logger) error {
	if !s.Snapshot().NeedSetup() {
		log.Info().Msg("All images are present")
		return nil
	}
	if err := s.Setup(ctx); err != nil {
		return err
	}
	log.Info().Msg("Downloading images")
	snap, err := s.Await(ctx, func(snap state.Snapshot) bool {
		return !state.IsInstalling(snap.State)
	})
	if err != nil {
		return err
	}
	if state.IsError(snap.State) {
		return failure("image download failed", snap)
	}
	return nil
}

func up(ctx context.Context, s orchestration, log zerolog.Logger) error {
	if err := setup(ctx, s, log); err != nil {
		return err
	}
	if snap := s.Snapshot(); state.CanRun(snap.State) {
		if err := s.Run(ctx); err != nil {
			return err
		}
		log.Info().Str("configuration", snap.Configuration).Msg("Starting Alfresco")
	}
	snap, err := s.Await(ctx, func(snap state.Snapshot) bool {
		return state.IsRunning(snap.State) || state.IsError(snap.State)
	})
	if err != nil {
		return err
	}
	if perr := printStatus(ctx, s); perr != nil {
		log.Warn().Err(perr).Msg("Failed to render status")
	}
	if state.IsError(snap.State) {
		return failure("alfresco failed to start", snap)
	}
	return nil
}

func down(ctx context.Context, s orchestration, log zerolog.Logger) error {
	snap := s.Snapshot()
	if !state.CanStop(snap.State) {
		log.Info().Str("state", snap.State.String()).Msg("Nothing to stop")
		return nil
	}
	if err := s.Stop(ctx); err != nil {
		return err
	}
	log.Info().Msg("Stopping Alfresco")
	snap, err := s.Await(ctx, func(snap state.Snapshot) bool {
		return snap.State == state.NotActive || state.IsError(snap.State)
	})
	if err != nil {
		return err
	}
	if state.IsError(snap.State) {
		return failure("alfresco failed to stop", snap)
	}
	return nil
}

func printStatus(ctx context.Context, s orchestration) error {
	rows, errs, err := s.Rows(ctx)
	if err != nil {
		return err
	}
	renderStatus(os.Stdout, s.Snapshot(), rows, errs)
	return nil
}

func failure(msg string, snap state.Snapshot) error {
	if len(snap.Errors) == 0 {
		return errors.New(msg)
	}
	return fmt.Errorf("%s: %s", msg, strings.Join(snap.Errors, "; "))
}
