// Package readiness normalizes heterogeneous probe results into a uniform
// READY / STARTING / UNKNOWN status.
package readiness

import (
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

// Evaluator resolves service names to their kind and applies the kind's policy.
type Evaluator struct {
	kinds map[string]domain.Kind
}

func NewEvaluator(services []domain.ServiceConfiguration) *Evaluator {
	kinds := make(map[string]domain.Kind, len(services))
	for _, s := range services {
		kinds[s.Service] = s.Kind
	}
	return &Evaluator{kinds: kinds}
}

// Kind returns the registered kind of service, KindUnknown if none.
func (e *Evaluator) Kind(service string) domain.Kind {
	return e.kinds[service]
}

// Evaluate maps a raw probe result for service to a readiness status.
func (e *Evaluator) Evaluate(service, raw string) domain.ReadinessStatus {
	policy, ok := PolicyFor(e.kinds[service])
	if !ok {
		return domain.StatusUnknown
	}
	return policy.Evaluate(raw)
}

// EvaluateContainer is Evaluate for an observed container. An exited container
// is a failure, whatever its policy says.
func (e *Evaluator) EvaluateContainer(c domain.ContainerDescriptor, raw string) (domain.ReadinessStatus, error) {
	if c.IsExited() {
		return "", NewContainerExitedError(c.Name, c.Status)
	}
	return e.Evaluate(c.Name, raw), nil
}
