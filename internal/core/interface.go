package core

import (
	"context"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/orchestrator"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

type engine interface {
	ListContainers(ctx context.Context, filter runtime.ListFilter) ([]domain.ContainerDescriptor, error)
	Info(ctx context.Context) (runtime.EngineInfo, error)
}

type deployer interface {
	Deploy(ctx context.Context, services []domain.ServiceConfiguration) (*orchestrator.DeployReport, error)
}

type shutdowner interface {
	Shutdown(ctx context.Context, services []domain.ServiceConfiguration) orchestrator.ShutdownReport
}

type imageManager interface {
	Present(ctx context.Context, services []domain.ServiceConfiguration) (orchestrator.ImageReport, error)
	Pull(ctx context.Context, services []domain.ServiceConfiguration) error
}

type prober interface {
	Probe(ctx context.Context, service string, kind domain.Kind) string
}
