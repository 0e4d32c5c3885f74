package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/core"
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/lock"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

type fakeSession struct {
	snap      state.Snapshot
	rows      []domain.Row
	rowErrs   []string
	rowsErr   error
	container domain.ContainerDescriptor
	cmdErr    error
	commands  []string
}

func (f *fakeSession) Snapshot() state.Snapshot { return f.snap }

func (f *fakeSession) Rows(context.Context) ([]domain.Row, []string, error) {
	return f.rows, f.rowErrs, f.rowsErr
}

func (f *fakeSession) ViewContainer(_ context.Context, id string) (domain.ContainerDescriptor, error) {
	if id != f.container.ID && id != f.container.Name {
		return domain.ContainerDescriptor{}, fmt.Errorf("%w: %s", core.ErrContainerNotFound, id)
	}
	return f.container, nil
}

func (f *fakeSession) SelectConfiguration(_ context.Context, name string) (state.Snapshot, error) {
	if _, err := config.Services(name); err != nil {
		return state.Snapshot{}, err
	}
	if f.cmdErr != nil {
		return f.snap, f.cmdErr
	}
	f.snap.Configuration = name
	return f.snap, nil
}

func (f *fakeSession) command(name string, next state.AlfrescoState) error {
	f.commands = append(f.commands, name)
	if f.cmdErr != nil {
		return f.cmdErr
	}
	f.snap.State = next
	return nil
}

func (f *fakeSession) Setup(context.Context) error {
	return f.command("setup", state.DownloadingImages)
}

func (f *fakeSession) Run(context.Context) error  { return f.command("run", state.Starting) }
func (f *fakeSession) Stop(context.Context) error { return f.command("stop", state.Stopping) }

func (f *fakeSession) OpenApplication(context.Context) error {
	return f.command("open", f.snap.State)
}

func newTestServer(s *fakeSession) *Server {
	return NewServer(config.APIConfig{Listen: "127.0.0.1:0"}, NewSessionHandler(s), zerolog.Nop())
}

func do(t *testing.T, srv *Server, method, path string) (int, map[string]any) {
	t.Helper()
	resp, err := srv.App().Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	return resp.StatusCode, out
}

func TestGetState(t *testing.T) {
	s := &fakeSession{snap: state.Snapshot{State: state.NotActive, Configuration: "alfresco-7.3"}}
	srv := newTestServer(s)

	status, body := do(t, srv, http.MethodGet, "/api/v1/state")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "NOT_ACTIVE", body["state"])
	assert.Equal(t, "alfresco-7.3", body["configuration"])
	assert.Equal(t, true, body["canRun"])
	assert.Equal(t, false, body["canStop"])
	assert.Equal(t, true, body["needSetup"])
	assert.Equal(t, []any{}, body["errors"])
}

func TestCommands(t *testing.T) {
	tests := []struct {
		path      string
		from      state.AlfrescoState
		cmdErr    error
		wantCode  int
		wantState string
	}{
		{path: "/api/v1/run", from: state.NotActive, wantCode: http.StatusAccepted, wantState: "STARTING"},
		{path: "/api/v1/stop", from: state.Running, wantCode: http.StatusAccepted, wantState: "STOPPING"},
		{path: "/api/v1/setup", from: state.NotActive, wantCode: http.StatusAccepted, wantState: "DOWNLOADING_IMAGES"},
		{path: "/api/v1/run", from: state.Starting, cmdErr: core.NewCommandNotPermittedError("run", state.Starting), wantCode: http.StatusConflict},
		{path: "/api/v1/run", from: state.NotActive, cmdErr: core.ErrImagesMissing, wantCode: http.StatusConflict},
		{path: "/api/v1/stop", from: state.Running, cmdErr: lock.ErrLocked, wantCode: http.StatusConflict},
		{path: "/api/v1/run", from: state.NotActive, cmdErr: errors.New("docker unavailable"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s from %s", tt.path, tt.from), func(t *testing.T) {
			s := &fakeSession{snap: state.Snapshot{State: tt.from}, cmdErr: tt.cmdErr}
			status, body := do(t, newTestServer(s), http.MethodPost, tt.path)
			assert.Equal(t, tt.wantCode, status)
			if tt.cmdErr != nil {
				assert.Equal(t, tt.cmdErr.Error(), body["error"])
				return
			}
			assert.Equal(t, tt.wantState, body["state"])
		})
	}
}

func TestOpen(t *testing.T) {
	s := &fakeSession{snap: state.Snapshot{State: state.Running}}
	status, _ := do(t, newTestServer(s), http.MethodPost, "/api/v1/open")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, []string{"open"}, s.commands)

	s.cmdErr = core.NewCommandNotPermittedError("open", state.NotActive)
	status, _ = do(t, newTestServer(s), http.MethodPost, "/api/v1/open")
	assert.Equal(t, http.StatusConflict, status)
}

func TestListContainers(t *testing.T) {
	s := &fakeSession{
		rows: []domain.Row{
			{ID: "abc", Name: "alfresco", State: "READY", Image: "alfresco/alfresco-content-repository-community:7.3.0", ImageName: "alfresco-content-repository-community", Version: "7.3.0"},
			{ID: "def", Name: "solr6", State: domain.RowExited},
		},
		rowErrs: []string{"container solr6 exited"},
	}
	status, body := do(t, newTestServer(s), http.MethodGet, "/api/v1/containers")
	require.Equal(t, http.StatusOK, status)

	containers, ok := body["containers"].([]any)
	require.True(t, ok)
	require.Len(t, containers, 2)
	first := containers[0].(map[string]any)
	assert.Equal(t, "alfresco", first["name"])
	assert.Equal(t, "READY", first["state"])
	assert.Equal(t, "alfresco-content-repository-community", first["imageName"])
	assert.Equal(t, []any{"container solr6 exited"}, body["errors"])

	s.rowsErr = errors.New("Cannot connect to the Docker daemon")
	status, _ = do(t, newTestServer(s), http.MethodGet, "/api/v1/containers")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestGetContainer(t *testing.T) {
	s := &fakeSession{container: domain.ContainerDescriptor{ID: "abc", Name: "alfresco", State: "running"}}
	srv := newTestServer(s)

	status, body := do(t, srv, http.MethodGet, "/api/v1/containers/alfresco")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "abc", body["id"])

	status, _ = do(t, srv, http.MethodGet, "/api/v1/containers/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSelectConfiguration(t *testing.T) {
	s := &fakeSession{snap: state.Snapshot{State: state.NotActive, Configuration: "alfresco-7.3"}}
	srv := newTestServer(s)

	status, body := do(t, srv, http.MethodPut, "/api/v1/configuration/alfresco-7.2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alfresco-7.2", body["configuration"])

	status, _ = do(t, srv, http.MethodPut, "/api/v1/configuration/alfresco-6.0")
	assert.Equal(t, http.StatusNotFound, status)

	s.cmdErr = core.NewCommandNotPermittedError("configuration change", state.Running)
	status, _ = do(t, srv, http.MethodPut, "/api/v1/configuration/alfresco-7.3")
	assert.Equal(t, http.StatusConflict, status)
}

func TestListConfigurations(t *testing.T) {
	s := &fakeSession{snap: state.Snapshot{Configuration: "alfresco-7.3"}}
	status, body := do(t, newTestServer(s), http.MethodGet, "/api/v1/configurations")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alfresco-7.3", body["active"])
	assert.Equal(t, []any{"alfresco-7.2", "alfresco-7.3"}, body["configurations"])
}

func TestUnknownRoute(t *testing.T) {
	status, body := do(t, newTestServer(&fakeSession{}), http.MethodGet, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}
