package readiness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

func testServices() []domain.ServiceConfiguration {
	return []domain.ServiceConfiguration{
		{Service: "postgres", Kind: domain.KindDatabase},
		{Service: "alfresco", Kind: domain.KindRepository},
		{Service: "solr6", Kind: domain.KindSearch},
		{Service: "transform-core-aio", Kind: domain.KindTransform},
		{Service: "activemq", Kind: domain.KindBroker},
		{Service: "proxy"},
		{Service: "content-app"},
		{Service: "custom", Kind: domain.KindUnknown},
	}
}

func TestEvaluate(t *testing.T) {
	e := NewEvaluator(testServices())

	tests := []struct {
		service string
		raw     string
		want    domain.ReadinessStatus
	}{
		{"postgres", "1 row selected", domain.StatusReady},
		{"postgres", " ?column? \n----------\n(0 rows)", domain.StatusReady},
		{"postgres", "ERROR: syntax", domain.StatusStarting},
		{"postgres", "false", domain.StatusStarting},
		{"postgres", "", domain.StatusStarting},
		{"alfresco", "200", domain.StatusReady},
		{"alfresco", "200\n", domain.StatusReady},
		{"alfresco", "503", domain.StatusStarting},
		{"alfresco", "false", domain.StatusStarting},
		{"solr6", "200", domain.StatusReady},
		{"transform-core-aio", "000", domain.StatusStarting},
		{"activemq", "200", domain.StatusReady},
		{"proxy", "200", domain.StatusUnknown},
		{"proxy", "502", domain.StatusUnknown},
		{"content-app", "200", domain.StatusUnknown},
		{"custom", "200", domain.StatusUnknown},
		{"unknown-service", "200", domain.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.service+"/"+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Evaluate(tt.service, tt.raw))
		})
	}
}

func TestEvaluateContainerExited(t *testing.T) {
	e := NewEvaluator(testServices())
	exited := domain.ContainerDescriptor{ID: "1", Name: "alfresco", State: "exited", Status: "Exited (137)"}

	for i := 0; i < 3; i++ {
		status, err := e.EvaluateContainer(exited, "200")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrContainerExited))
		assert.NotEqual(t, domain.StatusReady, status)
	}

	var exitErr *ContainerExitedError
	_, err := e.EvaluateContainer(exited, "200")
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "alfresco", exitErr.Container)
	assert.Contains(t, err.Error(), "Exited (137)")
}

func TestEvaluateContainerRunning(t *testing.T) {
	e := NewEvaluator(testServices())
	running := domain.ContainerDescriptor{ID: "1", Name: "postgres", State: "running"}

	status, err := e.EvaluateContainer(running, "(0 rows)")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, status)
}

func TestPolicyFor(t *testing.T) {
	_, ok := PolicyFor(domain.KindUnknown)
	assert.False(t, ok)

	p, ok := PolicyFor(domain.KindDatabase)
	require.True(t, ok)
	assert.Equal(t, domain.StatusStarting, p.Evaluate("could not connect: FATAL password authentication failed"))
}

func TestKind(t *testing.T) {
	e := NewEvaluator(testServices())
	assert.Equal(t, domain.KindDatabase, e.Kind("postgres"))
	assert.Equal(t, domain.KindUnknown, e.Kind("nope"))
}

func TestBuiltInConfigurationReadiness(t *testing.T) {
	services, err := config.Services(config.DefaultConfigurationName)
	require.NoError(t, err)
	e := NewEvaluator(services)

	tests := []struct {
		service string
		want    domain.ReadinessStatus
	}{
		{"alfresco", domain.StatusReady},
		{"solr6", domain.StatusReady},
		{"transform-core-aio", domain.StatusReady},
		{"activemq", domain.StatusReady},
		{"proxy", domain.StatusUnknown},
		{"content-app", domain.StatusUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Evaluate(tt.service, "200"), tt.service)
	}
	assert.Equal(t, domain.StatusReady, e.Evaluate("postgres", "(1 row)"))
}
