package runtime

import (
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	units "github.com/docker/go-units"
	"github.com/google/shlex"
	"github.com/spf13/pflag"
)

// ManagedLabel marks containers started by the orchestrator.
const ManagedLabel = "org.alfresco.orchestrator.managed"

// runOptions is the subset of `docker run` flags a service configuration may use.
type runOptions struct {
	publish    []string
	env        []string
	volume     []string
	label      []string
	addHost    []string
	memory     string
	restart    string
	hostname   string
	user       string
	workdir    string
	entrypoint string
}

func parseRunOptions(args []string) (*runOptions, error) {
	o := &runOptions{}
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringArrayVarP(&o.publish, "publish", "p", nil, "publish a container port")
	fs.StringArrayVarP(&o.env, "env", "e", nil, "set an environment variable")
	fs.StringArrayVarP(&o.volume, "volume", "v", nil, "bind mount a volume")
	fs.StringArrayVarP(&o.label, "label", "l", nil, "set a container label")
	fs.StringArrayVar(&o.addHost, "add-host", nil, "add a host-to-IP mapping")
	fs.StringVarP(&o.memory, "memory", "m", "", "memory limit")
	fs.StringVar(&o.restart, "restart", "", "restart policy")
	fs.StringVar(&o.hostname, "hostname", "", "container host name")
	fs.StringVarP(&o.user, "user", "u", "", "user name or UID")
	fs.StringVarP(&o.workdir, "workdir", "w", "", "working directory")
	fs.StringVar(&o.entrypoint, "entrypoint", "", "override the image entrypoint")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse run options: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("parse run options: unexpected arguments %q", fs.Args())
	}
	return o, nil
}

// buildContainerSpec translates a RunRequest into the engine's create payload.
func buildContainerSpec(req RunRequest) (*container.Config, *container.HostConfig, *network.NetworkingConfig, error) {
	o, err := parseRunOptions(req.Options)
	if err != nil {
		return nil, nil, nil, err
	}

	exposed, bindings, err := nat.ParsePortSpecs(o.publish)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse published ports: %w", err)
	}

	labels := map[string]string{ManagedLabel: "true"}
	for _, l := range o.label {
		k, v, _ := strings.Cut(l, "=")
		labels[k] = v
	}

	cfg := &container.Config{
		Image:        req.Image,
		Env:          o.env,
		Labels:       labels,
		ExposedPorts: exposed,
		Hostname:     o.hostname,
		User:         o.user,
		WorkingDir:   o.workdir,
	}
	cmd, err := shlex.Split(req.Cmd)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse cmd: %w", err)
	}
	if len(cmd) > 0 {
		cfg.Cmd = cmd
	}
	entrypoint, err := shlex.Split(o.entrypoint)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse entrypoint: %w", err)
	}
	if len(entrypoint) > 0 {
		cfg.Entrypoint = entrypoint
	}

	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Binds:        o.volume,
		ExtraHosts:   o.addHost,
		NetworkMode:  container.NetworkMode(req.Network),
	}
	if o.memory != "" {
		mem, err := units.RAMInBytes(o.memory)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse memory limit %q: %w", o.memory, err)
		}
		hostCfg.Memory = mem
	}
	if o.restart != "" {
		hostCfg.RestartPolicy = container.RestartPolicy{Name: container.RestartPolicyMode(o.restart)}
	}

	netCfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			req.Network: {Aliases: []string{req.Name}},
		},
	}
	return cfg, hostCfg, netCfg, nil
}
