package orchestrator

import (
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/util"
)

// RunGroup is the set of services sharing one run order.
type RunGroup struct {
	Order    int
	Services []domain.ServiceConfiguration
}

// GroupByRunOrder partitions services by Run.Order, ascending. Services keep
// their configured order within a group.
func GroupByRunOrder(services []domain.ServiceConfiguration) []RunGroup {
	byOrder := util.NewDefaultMap[int](func() []domain.ServiceConfiguration { return nil })
	for _, s := range services {
		byOrder.Set(s.Run.Order, append(byOrder.Get(s.Run.Order), s))
	}

	groups := make([]RunGroup, 0, byOrder.Len())
	for _, order := range util.SortedKeys(byOrder) {
		groups = append(groups, RunGroup{Order: order, Services: byOrder.Get(order)})
	}
	return groups
}
