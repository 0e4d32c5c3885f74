package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

// fakeGateway records every call it receives, in order.
type fakeGateway struct {
	mu sync.Mutex

	calls      []string
	containers map[string]domain.ContainerDescriptor

	networkExists  bool
	createFailures int
	networkCreates int
	runErr         map[string]error
	listErr        error
	stopErr        error
	removeErr      error
	images         []string
	pullErr        map[string]error
	pulled         []string
	runDelay       time.Duration
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		containers: map[string]domain.ContainerDescriptor{},
		runErr:     map[string]error{},
		pullErr:    map[string]error{},
	}
}

func (f *fakeGateway) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeGateway) ListContainers(_ context.Context, filter runtime.ListFilter) ([]domain.ContainerDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("list %s running=%t", strings.Join(filter.Names, ","), filter.RunningOnly))
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.ContainerDescriptor
	for _, name := range filter.Names {
		c, ok := f.containers[name]
		if !ok {
			continue
		}
		if filter.RunningOnly && !c.IsRunning() {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeGateway) Run(_ context.Context, req runtime.RunRequest) error {
	f.mu.Lock()
	f.record("run " + req.Name)
	f.mu.Unlock()

	time.Sleep(f.runDelay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.runErr[req.Name]; err != nil {
		return err
	}
	f.containers[req.Name] = domain.ContainerDescriptor{ID: "id-" + req.Name, Name: req.Name, State: domain.ContainerRunning}
	return nil
}

func (f *fakeGateway) Stop(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop " + strings.Join(ids, ","))
	if f.stopErr != nil {
		return f.stopErr
	}
	for name, c := range f.containers {
		if slices.Contains(ids, c.ID) {
			c.State = domain.ContainerExited
			f.containers[name] = c
		}
	}
	return nil
}

func (f *fakeGateway) Remove(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove " + strings.Join(ids, ","))
	if f.removeErr != nil {
		return f.removeErr
	}
	for name, c := range f.containers {
		if slices.Contains(ids, c.ID) {
			delete(f.containers, name)
		}
	}
	return nil
}

func (f *fakeGateway) NetworkInspect(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("inspect " + name)
	if !f.networkExists {
		return errors.New("network not found")
	}
	return nil
}

func (f *fakeGateway) NetworkCreate(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create " + name)
	f.networkCreates++
	if f.networkCreates <= f.createFailures {
		return errors.New("daemon busy")
	}
	f.networkExists = true
	return nil
}

func (f *fakeGateway) ListImages(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.images), nil
}

func (f *fakeGateway) PullImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pullErr[ref]; err != nil {
		return err
	}
	f.pulled = append(f.pulled, ref)
	f.images = append(f.images, ref)
	return nil
}

func (f *fakeGateway) callIndex(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Index(f.calls, call)
}

func testServices() []domain.ServiceConfiguration {
	svc := func(name string, order int) domain.ServiceConfiguration {
		return domain.ServiceConfiguration{
			Service: name,
			Image:   "example/" + name + ":1.0",
			Network: "alfresco",
			Run:     domain.RunSpec{Order: order},
		}
	}
	return []domain.ServiceConfiguration{
		svc("proxy", 3),
		svc("postgres", 0),
		svc("activemq", 0),
		svc("alfresco", 1),
		svc("solr6", 1),
		svc("content-app", 2),
	}
}

func testOrchestratorConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{NetworkRetries: 3, NetworkBackoff: time.Millisecond}
}

func TestGroupByRunOrder(t *testing.T) {
	groups := GroupByRunOrder(testServices())
	require.Len(t, groups, 4)

	var orders []int
	for _, g := range groups {
		orders = append(orders, g.Order)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, orders)
	assert.Equal(t, []string{"postgres", "activemq"}, domain.ServiceNames(groups[0].Services))
	assert.Equal(t, []string{"alfresco", "solr6"}, domain.ServiceNames(groups[1].Services))

	assert.Empty(t, GroupByRunOrder(nil))
}

func TestDeployRunsGroupsInOrder(t *testing.T) {
	gw := newFakeGateway()
	gw.networkExists = true
	gw.runDelay = 5 * time.Millisecond
	d := NewDeployer(gw, testOrchestratorConfig(), zerolog.Nop())

	report, err := d.Deploy(context.Background(), testServices())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"proxy", "postgres", "activemq", "alfresco", "solr6", "content-app"}, report.Services(OutcomeDeployed))

	// Every run of a lower group precedes every run of a higher group.
	groups := GroupByRunOrder(testServices())
	for i := 1; i < len(groups); i++ {
		for _, before := range groups[i-1].Services {
			for _, after := range groups[i].Services {
				assert.Less(t, gw.callIndex("run "+before.Service), gw.callIndex("run "+after.Service),
					"%s should run before %s", before.Service, after.Service)
			}
		}
	}
}

func TestDeploySkipsRunningContainers(t *testing.T) {
	gw := newFakeGateway()
	gw.networkExists = true
	gw.containers["postgres"] = domain.ContainerDescriptor{ID: "pg", Name: "postgres", State: domain.ContainerRunning}
	d := NewDeployer(gw, testOrchestratorConfig(), zerolog.Nop())

	report, err := d.Deploy(context.Background(), testServices())
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres"}, report.Services(OutcomeSkipped))
	assert.Equal(t, -1, gw.callIndex("run postgres"))
	assert.Equal(t, -1, gw.callIndex("remove pg"))
}

func TestDeployIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	gw.networkExists = true
	d := NewDeployer(gw, testOrchestratorConfig(), zerolog.Nop())

	_, err := d.Deploy(context.Background(), testServices())
	require.NoError(t, err)

	report, err := d.Deploy(context.Background(), testServices())
	require.NoError(t, err)
	assert.Empty(t, report.Services(OutcomeDeployed))
	assert.Len(t, report.Services(OutcomeSkipped), len(testServices()))
}

func TestDeployRemovesStaleContainerBeforeRun(t *testing.T) {
	gw := newFakeGateway()
	gw.networkExists = true
	gw.containers["alfresco"] = domain.ContainerDescriptor{ID: "old", Name: "alfresco", State: domain.ContainerExited}
	d := NewDeployer(gw, testOrchestratorConfig(), zerolog.Nop())

	_, err := d.Deploy(context.Background(), testServices())
	require.NoError(t, err)

	removeAt := gw.callIndex("remove old")
	runAt := gw.callIndex("run alfresco")
	require.NotEqual(t, -1, removeAt)
	assert.Less(t, removeAt, runAt)
	assert.Equal(t, "id-alfresco", gw.containers["alfresco"].ID)
}

func TestDeployContinuesPastFailedService(t *testing.T) {
	gw := newFakeGateway()
	gw.networkExists = true
	gw.runErr["postgres"] = errors.New("port already allocated")
	d := NewDeployer(gw, testOrchestratorConfig(), zerolog.Nop())

	report, err := d.Deploy(context.Background(), testServices())
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "postgres", svcErr.Service)
	assert.Equal(t, "run", svcErr.Op)

	assert.Equal(t, []string{"postgres"}, report.Services(OutcomeFailed))
	assert.Contains(t, report.Services(OutcomeDeployed), "activemq")
	assert.Contains(t, report.Services(OutcomeDeployed), "proxy")
	require.Error(t, report.Groups[0].Err)
	assert.NoError(t, report.Groups[1].Err)
}

func TestEnsureNetwork(t *testing.T) {
	tests := []struct {
		name           string
		exists         bool
		createFailures int
		wantCreates    int
		wantErr        bool
	}{
		{name: "existing network", exists: true, wantCreates: 0},
		{name: "created first time", createFailures: 0, wantCreates: 1},
		{name: "created after retry", createFailures: 2, wantCreates: 3},
		{name: "gives up", createFailures: 5, wantCreates: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.networkExists = tt.exists
			gw.createFailures = tt.createFailures
			d := NewDeployer(gw, testOrchestratorConfig(), zerolog.Nop())

			_, err := d.Deploy(context.Background(), testServices()[:1])
			assert.Equal(t, tt.wantCreates, gw.networkCreates)
			if tt.wantErr {
				var netErr *NetworkSetupError
				require.ErrorAs(t, err, &netErr)
				assert.Equal(t, "alfresco", netErr.Network)
				assert.Equal(t, 3, netErr.Attempts)
				assert.Equal(t, -1, gw.callIndex("run proxy"))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestEnsureNetworkHonoursCancellation(t *testing.T) {
	gw := newFakeGateway()
	gw.createFailures = 10
	cfg := config.OrchestratorConfig{NetworkRetries: 5, NetworkBackoff: time.Hour}
	d := NewDeployer(gw, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := d.Deploy(ctx, testServices())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gw.networkCreates)
}

func TestEnsureNetworkBacksOff(t *testing.T) {
	gw := newFakeGateway()
	gw.createFailures = 10
	cfg := config.OrchestratorConfig{NetworkRetries: 3, NetworkBackoff: 20 * time.Millisecond}
	d := NewDeployer(gw, cfg, zerolog.Nop())

	start := time.Now()
	err := d.ensureNetwork(context.Background(), "alfresco")
	elapsed := time.Since(start)

	var netErr *NetworkSetupError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 3, gw.networkCreates)
	// 20ms then 40ms between the three attempts.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestEnsureNetworkSingleAttempt(t *testing.T) {
	gw := newFakeGateway()
	gw.createFailures = 1
	d := NewDeployer(gw, config.OrchestratorConfig{NetworkRetries: 0}, zerolog.Nop())

	err := d.ensureNetwork(context.Background(), "alfresco")
	var netErr *NetworkSetupError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 1, netErr.Attempts)
	assert.Equal(t, 1, gw.networkCreates)
}

func TestShutdown(t *testing.T) {
	gw := newFakeGateway()
	gw.containers["postgres"] = domain.ContainerDescriptor{ID: "pg", Name: "postgres", State: domain.ContainerRunning}
	gw.containers["alfresco"] = domain.ContainerDescriptor{ID: "acs", Name: "alfresco", State: domain.ContainerExited}
	gw.containers["unrelated"] = domain.ContainerDescriptor{ID: "x", Name: "unrelated", State: domain.ContainerRunning}
	s := NewShutdowner(gw, zerolog.Nop())

	report := s.Shutdown(context.Background(), testServices())
	assert.Empty(t, report.Errors)
	assert.ElementsMatch(t, []string{"postgres", "alfresco"}, report.Containers)
	assert.Less(t, gw.callIndex("stop pg,acs"), gw.callIndex("remove pg,acs"))
	assert.Contains(t, gw.containers, "unrelated")
	assert.NotContains(t, gw.containers, "postgres")

	// Nothing left: a second shutdown is a no-op.
	report = s.Shutdown(context.Background(), testServices())
	assert.Empty(t, report.Containers)
	assert.Empty(t, report.Errors)
}

func TestShutdownCollectsErrors(t *testing.T) {
	gw := newFakeGateway()
	gw.containers["postgres"] = domain.ContainerDescriptor{ID: "pg", Name: "postgres", State: domain.ContainerRunning}
	gw.stopErr = errors.New("stop timeout")
	s := NewShutdowner(gw, zerolog.Nop())

	report := s.Shutdown(context.Background(), testServices())
	require.Len(t, report.Errors, 1)
	assert.EqualError(t, report.Errors[0], "stop timeout")
	// Removal is still attempted.
	assert.NotEqual(t, -1, gw.callIndex("remove pg"))

	gw.listErr = errors.New("daemon unavailable")
	report = s.Shutdown(context.Background(), testServices())
	require.Len(t, report.Errors, 1)
	assert.Empty(t, report.Containers)
}

func TestImagePresence(t *testing.T) {
	gw := newFakeGateway()
	gw.images = []string{"example/postgres:1.0", "example/proxy:1.0"}
	m := NewImageManager(gw, zerolog.Nop())

	services := testServices()[:2]
	report, err := m.Present(context.Background(), services)
	require.NoError(t, err)
	assert.True(t, report.Complete())

	report, err = m.Present(context.Background(), testServices())
	require.NoError(t, err)
	assert.False(t, report.Complete())
	assert.ElementsMatch(t, []string{"example/activemq:1.0", "example/alfresco:1.0", "example/solr6:1.0", "example/content-app:1.0"}, report.Missing)
}

func TestPullDownloadsMissingImages(t *testing.T) {
	gw := newFakeGateway()
	gw.images = []string{"example/postgres:1.0"}
	gw.pullErr["example/solr6:1.0"] = errors.New("manifest unknown")
	m := NewImageManager(gw, zerolog.Nop())

	err := m.Pull(context.Background(), testServices())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest unknown")
	assert.NotContains(t, gw.pulled, "example/postgres:1.0")
	assert.Len(t, gw.pulled, 4)

	delete(gw.pullErr, "example/solr6:1.0")
	require.NoError(t, m.Pull(context.Background(), testServices()))
	assert.Contains(t, gw.pulled, "example/solr6:1.0")
}

func TestHasImage(t *testing.T) {
	tests := []struct {
		tags []string
		ref  string
		want bool
	}{
		{[]string{"nginx:latest"}, "nginx", true},
		{[]string{"nginx:latest"}, "nginx:latest", true},
		{[]string{"nginx:1.25"}, "nginx", false},
		{[]string{"localhost:5000/app:2"}, "localhost:5000/app:2", true},
		{nil, "postgres:14.4", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, hasImage(tt.tags, tt.ref))
		})
	}
}
