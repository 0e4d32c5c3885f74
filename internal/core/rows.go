package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/probe"
	"github.com/alfresco/alfresco-orchestrator/internal/readiness"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

// Rows lists the managed containers of the active configuration with their
// normalized readiness. The second result holds one message per failed
// container.
func (s *Session) Rows(ctx context.Context) ([]domain.Row, []string, error) {
	return s.collectRows(ctx, s.store.Snapshot().Services)
}

// ViewContainer returns the managed container matching id, which may be a
// full id, an id prefix or the container name.
func (s *Session) ViewContainer(ctx context.Context, id string) (domain.ContainerDescriptor, error) {
	containers, err := s.listManaged(ctx, s.store.Snapshot().Services)
	if err != nil {
		return domain.ContainerDescriptor{}, err
	}
	for _, c := range containers {
		if c.Name == id || (id != "" && strings.HasPrefix(c.ID, id)) {
			return c, nil
		}
	}
	return domain.ContainerDescriptor{}, fmt.Errorf("%w: %s", ErrContainerNotFound, id)
}

type rowResult struct {
	row domain.Row
	err error
}

func (s *Session) collectRows(ctx context.Context, services []domain.ServiceConfiguration) ([]domain.Row, []string, error) {
	containers, err := s.listManaged(ctx, services)
	if err != nil {
		return nil, nil, err
	}
	eval := readiness.NewEvaluator(services)

	results := iter.Map(containers, func(c *domain.ContainerDescriptor) rowResult {
		raw := probe.Failed
		if c.IsRunning() {
			raw = s.prober.Probe(ctx, c.Name, eval.Kind(c.Name))
		}
		status, err := eval.EvaluateContainer(*c, raw)
		if err != nil {
			return rowResult{row: domain.NewRow(*c, domain.RowExited), err: err}
		}
		return rowResult{row: domain.NewRow(*c, string(status))}
	})

	rows := make([]domain.Row, 0, len(results))
	var errs []string
	for _, r := range results {
		rows = append(rows, r.row)
		if r.err != nil {
			errs = append(errs, r.err.Error())
		}
	}
	order := make(map[string]int, len(services))
	for i, svc := range services {
		order[svc.Service] = i
	}
	slices.SortStableFunc(rows, func(a, b domain.Row) int {
		return order[a.Name] - order[b.Name]
	})
	return rows, errs, nil
}

func (s *Session) listManaged(ctx context.Context, services []domain.ServiceConfiguration) ([]domain.ContainerDescriptor, error) {
	names := domain.ServiceNames(services)
	var all []domain.ContainerDescriptor
	for _, network := range domain.Networks(services) {
		containers, err := s.engine.ListContainers(ctx, runtime.ListFilter{Names: names, Network: network})
		if err != nil {
			return nil, fmt.Errorf("list containers on %s: %w", network, err)
		}
		all = append(all, containers...)
	}
	return all, nil
}
