package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Configuration: DefaultConfigurationName,
			PollInterval:  1500 * time.Millisecond,
			MinMemory:     "6GB",
		},
		Probe:        ProbeConfig{Timeout: time.Second},
		Orchestrator: OrchestratorConfig{NetworkRetries: 3},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
		check   func(t *testing.T, c *Config)
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.App.PollInterval = 0 },
			wantErr: "app.poll_interval",
		},
		{
			name:    "unknown configuration",
			mutate:  func(c *Config) { c.App.Configuration = "alfresco-6.0" },
			wantErr: "unknown configuration",
		},
		{
			name:    "unparsable memory size",
			mutate:  func(c *Config) { c.App.MinMemory = "lots" },
			wantErr: "app.min_memory",
		},
		{
			name:   "probe timeout is capped",
			mutate: func(c *Config) { c.Probe.Timeout = 5 * time.Second },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, MaxProbeTimeout, c.Probe.Timeout)
			},
		},
		{
			name:   "at least one network attempt",
			mutate: func(c *Config) { c.Orchestrator.NetworkRetries = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 1, c.Orchestrator.NetworkRetries)
			},
		},
		{
			name: "lock without endpoints",
			mutate: func(c *Config) {
				c.Lock.Enabled = true
				c.Lock.Endpoints = nil
			},
			wantErr: "lock.endpoints",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestBuiltInConfigurationsAreValid(t *testing.T) {
	for _, name := range ConfigurationNames() {
		t.Run(name, func(t *testing.T) {
			services, err := Services(name)
			require.NoError(t, err)
			require.NoError(t, domain.Validate(services))
			for _, s := range services {
				assert.Equal(t, wantKinds[s.Service], s.Kind, s.Service)
				assert.Equal(t, DefaultNetwork, s.Network)
			}
		})
	}
}

// proxy and content-app have no readiness check and report UNKNOWN.
var wantKinds = map[string]domain.Kind{
	"postgres":           domain.KindDatabase,
	"activemq":           domain.KindBroker,
	"transform-core-aio": domain.KindTransform,
	"solr6":              domain.KindSearch,
	"alfresco":           domain.KindRepository,
	"content-app":        domain.KindUnknown,
	"proxy":              domain.KindUnknown,
}

func TestServicesRejectsInvalidSet(t *testing.T) {
	Configurations["broken"] = []domain.ServiceConfiguration{
		{Service: "postgres", Image: "postgres:14.4", Network: DefaultNetwork},
		{Service: "postgres", Image: "postgres:13.1", Network: DefaultNetwork},
	}
	t.Cleanup(func() { delete(Configurations, "broken") })

	_, err := Services("broken")
	assert.ErrorContains(t, err, "duplicate service name postgres")
}

func TestUnknownConfigurationSentinel(t *testing.T) {
	_, err := Services("alfresco-6.0")
	assert.ErrorIs(t, err, ErrUnknownConfiguration)

	c := validConfig()
	c.App.Configuration = "alfresco-6.0"
	assert.ErrorIs(t, c.Validate(), ErrUnknownConfiguration)
}

func TestServicesReturnsCopy(t *testing.T) {
	a, err := Services(DefaultConfigurationName)
	require.NoError(t, err)
	a[0].Run.Options[0] = "--mutated"
	a[0].Service = "mutated"

	b, err := Services(DefaultConfigurationName)
	require.NoError(t, err)
	assert.NotEqual(t, "--mutated", b[0].Run.Options[0])
	assert.NotEqual(t, "mutated", b[0].Service)
}
