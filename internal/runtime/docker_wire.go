package runtime

import (
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

func fromContainerSummary(c container.Summary) domain.ContainerDescriptor {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	_, version := domain.SplitImage(c.Image)
	return domain.ContainerDescriptor{
		ID:      c.ID,
		Name:    name,
		State:   string(c.State),
		Status:  c.Status,
		Image:   c.Image,
		Version: version,
	}
}

func listOptions(f ListFilter) container.ListOptions {
	args := filters.NewArgs()
	for _, name := range f.Names {
		// The engine matches names as a regular expression; anchor it so
		// "alfresco" does not select every container with that substring.
		args.Add("name", "^/"+name+"$")
	}
	if f.Network != "" {
		args.Add("network", f.Network)
	}
	if f.RunningOnly {
		args.Add("status", domain.ContainerRunning)
	}
	return container.ListOptions{
		All:     !f.RunningOnly,
		Filters: args,
	}
}
