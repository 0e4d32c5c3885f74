// Package probe runs bounded health checks inside service containers.
//
// A probe never returns an error: anything that prevents the check from
// completing (exec failure, non-zero exit, timeout) yields Failed, so the
// readiness evaluator stays total.
package probe

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

// Failed is the sentinel raw result of a probe that could not complete.
const Failed = "false"

type executor interface {
	Exec(ctx context.Context, name string, cmd []string) (runtime.ExecResult, error)
}

type Prober struct {
	exec    executor
	timeout time.Duration
	logger  zerolog.Logger
}

func NewProber(exec executor, timeout time.Duration, logger zerolog.Logger) *Prober {
	return &Prober{
		exec:    exec,
		timeout: timeout,
		logger:  logger,
	}
}

// Probe executes the health check for kind inside the service's container and
// returns its raw textual result.
func (p *Prober) Probe(ctx context.Context, service string, kind domain.Kind) string {
	cmd, ok := Command(kind)
	if !ok {
		return Failed
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.exec.Exec(ctx, service, cmd)
	if err != nil {
		p.logger.Debug().Err(err).Str("container", service).Msg("Probe could not run")
		return Failed
	}
	if res.ExitCode != 0 {
		p.logger.Debug().Str("container", service).Int("exit_code", res.ExitCode).Msg("Probe exited non-zero")
		return Failed
	}
	return strings.TrimSpace(res.Stdout)
}
