package orchestrator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

// ShutdownReport describes a best-effort shutdown. Errors are informational;
// residual containers are cleaned up by the next deployment.
type ShutdownReport struct {
	Containers []string
	Errors     []error
}

type Shutdowner struct {
	gw     shutdownGateway
	logger zerolog.Logger
}

func NewShutdowner(gw shutdownGateway, logger zerolog.Logger) *Shutdowner {
	return &Shutdowner{gw: gw, logger: logger}
}

// Shutdown stops and then removes every managed container on the service
// set's networks. It never fails; problems are logged and reported.
func (s *Shutdowner) Shutdown(ctx context.Context, services []domain.ServiceConfiguration) ShutdownReport {
	var report ShutdownReport
	names := domain.ServiceNames(services)

	var ids []string
	for _, network := range domain.Networks(services) {
		containers, err := s.gw.ListContainers(ctx, runtime.ListFilter{Names: names, Network: network})
		if err != nil {
			s.logger.Warn().Err(err).Str("network", network).Msg("Could not list containers to stop")
			report.Errors = append(report.Errors, err)
			continue
		}
		for _, c := range containers {
			ids = append(ids, c.ID)
			report.Containers = append(report.Containers, c.Name)
		}
	}
	if len(ids) == 0 {
		s.logger.Debug().Msg("No managed containers to stop")
		return report
	}

	if err := s.gw.Stop(ctx, ids); err != nil {
		s.logger.Warn().Err(err).Msg("Stopping containers failed")
		report.Errors = append(report.Errors, err)
	}
	if err := s.gw.Remove(ctx, ids); err != nil {
		s.logger.Warn().Err(err).Msg("Removing containers failed")
		report.Errors = append(report.Errors, err)
	}
	s.logger.Info().Strs("containers", report.Containers).Msg("Managed containers stopped")
	return report
}
