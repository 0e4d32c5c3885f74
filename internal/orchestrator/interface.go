package orchestrator

import (
	"context"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

type containerLister interface {
	ListContainers(ctx context.Context, filter runtime.ListFilter) ([]domain.ContainerDescriptor, error)
}

type deployGateway interface {
	containerLister
	Run(ctx context.Context, req runtime.RunRequest) error
	Remove(ctx context.Context, ids []string) error
	NetworkInspect(ctx context.Context, name string) error
	NetworkCreate(ctx context.Context, name string) error
}

type shutdownGateway interface {
	containerLister
	Stop(ctx context.Context, ids []string) error
	Remove(ctx context.Context, ids []string) error
}

type imageGateway interface {
	ListImages(ctx context.Context) ([]string, error)
	PullImage(ctx context.Context, ref string) error
}
