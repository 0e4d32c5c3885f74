// Package event follows the engine's event stream for managed containers.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/rs/zerolog"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

const bufferSize = 32

type DockerWatcher struct {
	logger zerolog.Logger
	cli    dockerClient
}

func NewDockerWatcher(cli dockerClient, logger zerolog.Logger) *DockerWatcher {
	return &DockerWatcher{
		logger: logger,
		cli:    cli,
	}
}

// Subscribe streams lifecycle events of containers carrying the managed
// label. The channel is closed when ctx is done or the engine ends the
// stream.
func (dw *DockerWatcher) Subscribe(ctx context.Context) (<-chan domain.ContainerEvent, error) {
	out := make(chan domain.ContainerEvent, bufferSize)

	filterArgs := filters.NewArgs()
	filterArgs.Add("type", string(events.ContainerEventType))
	filterArgs.Add("label", runtime.ManagedLabel+"=true")
	for _, action := range []domain.ContainerAction{domain.ActionStart, domain.ActionStop, domain.ActionDie, domain.ActionDestroy} {
		filterArgs.Add("event", string(action))
	}

	options := events.ListOptions{
		Filters: filterArgs,
		Since:   time.Now().Format(time.RFC3339Nano),
	}
	eventCh, errCh := dw.cli.Events(ctx, options)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				dw.logger.Debug().Msg("Docker event watcher cancelled by context")
				return
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) {
					dw.logger.Warn().Err(err).Msg("Docker events stream ended")
				}
				return
			case msg, ok := <-eventCh:
				if !ok {
					dw.logger.Info().Msg("Docker events channel closed")
					return
				}

				ev, convErr := fromEventsMessage(msg)
				if convErr != nil {
					dw.logger.Debug().Err(convErr).Msg("Skipping docker event")
					continue
				}

				dw.logger.Debug().Str("container", ev.Name).Str("action", string(ev.Action)).Msg("Received Docker event")
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
