// Package runtime abstracts the container engine the orchestrator drives.
package runtime

import (
	"context"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

// ListFilter scopes a container listing. Empty fields do not filter.
type ListFilter struct {
	Names   []string
	Network string
	// RunningOnly restricts the listing to running containers; otherwise
	// stopped and exited containers are included.
	RunningOnly bool
}

// RunRequest carries everything needed to start one service container.
type RunRequest struct {
	Name    string
	Network string
	Image   string
	Options []string
	Cmd     string
}

type ExecResult struct {
	Stdout   string
	ExitCode int
}

type EngineInfo struct {
	ServerVersion string
	MemTotal      int64
	NCPU          int
}

// Gateway is the set of engine calls the orchestration layer relies on.
// Every call is a single request/response.
type Gateway interface {
	ListContainers(ctx context.Context, filter ListFilter) ([]domain.ContainerDescriptor, error)
	Exec(ctx context.Context, name string, cmd []string) (ExecResult, error)
	Run(ctx context.Context, req RunRequest) error
	Stop(ctx context.Context, ids []string) error
	Remove(ctx context.Context, ids []string) error
	NetworkInspect(ctx context.Context, name string) error
	NetworkCreate(ctx context.Context, name string) error
	ListImages(ctx context.Context) ([]string, error)
	PullImage(ctx context.Context, ref string) error
	Info(ctx context.Context) (EngineInfo, error)
	Close() error
}

// Host performs desktop-side actions on behalf of the presentation layer.
type Host interface {
	OpenURL(ctx context.Context, url string) error
}
