package main

import (
	"context"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

type application interface {
	Serve(ctx context.Context) error
	Close() error
}

// orchestration is the part of the session the one-shot commands drive.
type orchestration interface {
	Loop(ctx context.Context) error
	Refresh(ctx context.Context)
	Snapshot() state.Snapshot
	Await(ctx context.Context, done func(state.Snapshot) bool) (state.Snapshot, error)
	Rows(ctx context.Context) ([]domain.Row, []string, error)
	Setup(ctx context.Context) error
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
	OpenApplication(ctx context.Context) error
}
