package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	dockerCli "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

var _ Gateway = (*DockerGateway)(nil)

// DockerGateway implements Gateway on top of the Docker Engine API.
type DockerGateway struct {
	cli         dockerClient
	stopTimeout time.Duration
	logger      zerolog.Logger
}

// NewDockerClient connects to the engine named by cfg, or the DOCKER_* environment.
func NewDockerClient(cfg config.DockerConfig) (*dockerCli.Client, error) {
	opts := []dockerCli.Opt{dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, dockerCli.WithHost(cfg.Host))
	}
	cli, err := dockerCli.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return cli, nil
}

func NewDockerGateway(cli dockerClient, stopTimeout time.Duration, logger zerolog.Logger) *DockerGateway {
	return &DockerGateway{
		cli:         cli,
		stopTimeout: stopTimeout,
		logger:      logger,
	}
}

func (g *DockerGateway) ListContainers(ctx context.Context, filter ListFilter) ([]domain.ContainerDescriptor, error) {
	summaries, err := g.cli.ContainerList(ctx, listOptions(filter))
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	out := make([]domain.ContainerDescriptor, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, fromContainerSummary(s))
	}
	return out, nil
}

// Exec runs cmd inside the named container and collects its stdout. The call
// is abandoned when ctx is done.
func (g *DockerGateway) Exec(ctx context.Context, name string, cmd []string) (ExecResult, error) {
	created, err := g.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("create exec in %s: %w", name, err)
	}

	attach, err := g.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("attach exec in %s: %w", name, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		done <- copyErr
	}()

	select {
	case <-ctx.Done():
		attach.Close()
		return ExecResult{}, fmt.Errorf("exec in %s: %w", name, ctx.Err())
	case copyErr := <-done:
		if copyErr != nil {
			return ExecResult{}, fmt.Errorf("read exec output from %s: %w", name, copyErr)
		}
	}

	inspect, err := g.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("inspect exec in %s: %w", name, err)
	}
	if stderr.Len() > 0 {
		g.logger.Trace().Str("container", name).Str("stderr", stderr.String()).Msg("Exec wrote to stderr")
	}
	return ExecResult{Stdout: stdout.String(), ExitCode: inspect.ExitCode}, nil
}

// Run creates and starts a container. A container that was created but could
// not be started is left in place so polling reports it as exited.
func (g *DockerGateway) Run(ctx context.Context, req RunRequest) error {
	cfg, hostCfg, netCfg, err := buildContainerSpec(req)
	if err != nil {
		return fmt.Errorf("build spec for %s: %w", req.Name, err)
	}
	resp, err := g.cli.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, req.Name)
	if err != nil {
		return fmt.Errorf("create container %s: %w", req.Name, err)
	}
	for _, w := range resp.Warnings {
		g.logger.Warn().Str("container", req.Name).Msg(w)
	}
	if err := g.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", req.Name, err)
	}
	g.logger.Debug().Str("container", req.Name).Str("id", resp.ID).Msg("Container started")
	return nil
}

func (g *DockerGateway) Stop(ctx context.Context, ids []string) error {
	timeout := int(g.stopTimeout.Seconds())
	var errs []error
	for _, id := range ids {
		if err := g.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
			errs = append(errs, fmt.Errorf("stop container %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (g *DockerGateway) Remove(ctx context.Context, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := g.cli.ContainerRemove(ctx, id, container.RemoveOptions{RemoveVolumes: true}); err != nil {
			errs = append(errs, fmt.Errorf("remove container %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (g *DockerGateway) NetworkInspect(ctx context.Context, name string) error {
	if _, err := g.cli.NetworkInspect(ctx, name, network.InspectOptions{}); err != nil {
		return fmt.Errorf("inspect network %s: %w", name, err)
	}
	return nil
}

func (g *DockerGateway) NetworkCreate(ctx context.Context, name string) error {
	resp, err := g.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil {
		return fmt.Errorf("create network %s: %w", name, err)
	}
	if resp.Warning != "" {
		g.logger.Warn().Str("network", name).Msg(resp.Warning)
	}
	return nil
}

func (g *DockerGateway) ListImages(ctx context.Context) ([]string, error) {
	images, err := g.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	var tags []string
	for _, img := range images {
		tags = append(tags, img.RepoTags...)
	}
	return tags, nil
}

// PullImage pulls ref and drains the progress stream, which is what drives the pull.
func (g *DockerGateway) PullImage(ctx context.Context, ref string) error {
	reader, err := g.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	return nil
}

func (g *DockerGateway) Info(ctx context.Context) (EngineInfo, error) {
	info, err := g.cli.Info(ctx)
	if err != nil {
		return EngineInfo{}, fmt.Errorf("engine info: %w", err)
	}
	return EngineInfo{
		ServerVersion: info.ServerVersion,
		MemTotal:      info.MemTotal,
		NCPU:          info.NCPU,
	}, nil
}

func (g *DockerGateway) Close() error {
	return g.cli.Close()
}
