package domain

import (
	"fmt"

	"github.com/alfresco/alfresco-orchestrator/internal/util"
)

// Kind selects the readiness policy and probe command of a managed service.
type Kind string

const (
	KindUnknown    Kind = ""
	KindRepository Kind = "repository"
	KindSearch     Kind = "search"
	KindTransform  Kind = "transform"
	KindBroker     Kind = "broker"
	KindDatabase   Kind = "database"
)

// IsHTTP reports whether the service is checked with an HTTP status probe.
func (k Kind) IsHTTP() bool {
	switch k {
	case KindRepository, KindSearch, KindTransform, KindBroker:
		return true
	}
	return false
}

// RunSpec describes how the container of a service is started.
type RunSpec struct {
	Order   int      `mapstructure:"order" json:"order"`
	Options []string `mapstructure:"options" json:"options"`
	Cmd     string   `mapstructure:"cmd" json:"cmd,omitempty"`
}

// ServiceConfiguration is the static descriptor of one managed service.
// Service doubles as the container name.
type ServiceConfiguration struct {
	Service string  `mapstructure:"service" json:"service"`
	Image   string  `mapstructure:"image" json:"image"`
	Network string  `mapstructure:"network" json:"network"`
	Kind    Kind    `mapstructure:"kind" json:"kind,omitempty"`
	Run     RunSpec `mapstructure:"run" json:"run"`
}

// Validate checks the invariants of a configuration set: every service has a
// name, an image and a network, and names are unique.
func Validate(services []ServiceConfiguration) error {
	seen := make(map[string]struct{}, len(services))
	for i, s := range services {
		if s.Service == "" {
			return fmt.Errorf("service #%d has no name", i)
		}
		if s.Image == "" {
			return fmt.Errorf("service %s has no image", s.Service)
		}
		if s.Network == "" {
			return fmt.Errorf("service %s has no network", s.Service)
		}
		if _, dup := seen[s.Service]; dup {
			return fmt.Errorf("duplicate service name %s", s.Service)
		}
		seen[s.Service] = struct{}{}
	}
	return nil
}

func ServiceNames(services []ServiceConfiguration) []string {
	return util.Map(services, func(s ServiceConfiguration) string { return s.Service })
}

// Networks returns the distinct networks used by the set, in first-seen order.
func Networks(services []ServiceConfiguration) []string {
	var networks []string
	seen := map[string]struct{}{}
	for _, s := range services {
		if _, ok := seen[s.Network]; ok {
			continue
		}
		seen[s.Network] = struct{}{}
		networks = append(networks, s.Network)
	}
	return networks
}

func Images(services []ServiceConfiguration) []string {
	var images []string
	seen := map[string]struct{}{}
	for _, s := range services {
		if _, ok := seen[s.Image]; ok {
			continue
		}
		seen[s.Image] = struct{}{}
		images = append(images, s.Image)
	}
	return images
}
