package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/runtime"
)

type Outcome string

const (
	OutcomeDeployed Outcome = "deployed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

type ServiceResult struct {
	Service string
	Outcome Outcome
	Err     error
}

// GroupResult collects the outcome of every service of one run-order group.
type GroupResult struct {
	Order    int
	Services []ServiceResult
	Err      error
}

type DeployReport struct {
	Groups []GroupResult
}

func (r *DeployReport) Err() error {
	var errs []error
	for _, g := range r.Groups {
		if g.Err != nil {
			errs = append(errs, g.Err)
		}
	}
	return errors.Join(errs...)
}

func (r *DeployReport) Services(outcome Outcome) []string {
	var names []string
	for _, g := range r.Groups {
		for _, s := range g.Services {
			if s.Outcome == outcome {
				names = append(names, s.Service)
			}
		}
	}
	return names
}

// Deployer brings up a service set group by group.
type Deployer struct {
	gw      deployGateway
	retries int
	delay   time.Duration
	logger  zerolog.Logger
}

func NewDeployer(gw deployGateway, cfg config.OrchestratorConfig, logger zerolog.Logger) *Deployer {
	return &Deployer{
		gw:      gw,
		retries: max(cfg.NetworkRetries, 1),
		delay:   cfg.NetworkBackoff,
		logger:  logger,
	}
}

// Deploy ensures the shared networks exist, then deploys each run-order group
// in ascending order. Services of a group are deployed concurrently and the
// whole group completes before the next one starts. A failing service never
// stops its siblings or later groups; failures are collected in the report
// and returned joined.
func (d *Deployer) Deploy(ctx context.Context, services []domain.ServiceConfiguration) (*DeployReport, error) {
	for _, network := range domain.Networks(services) {
		if err := d.ensureNetwork(ctx, network); err != nil {
			return nil, err
		}
	}

	report := &DeployReport{}
	for _, group := range GroupByRunOrder(services) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		d.logger.Info().Int("order", group.Order).Strs("services", domain.ServiceNames(group.Services)).Msg("Deploying run-order group")
		res := d.deployGroup(ctx, group)
		if res.Err != nil {
			d.logger.Error().Err(res.Err).Int("order", group.Order).Msg("Run-order group finished with failures")
		}
		report.Groups = append(report.Groups, res)
	}
	return report, report.Err()
}

func (d *Deployer) deployGroup(ctx context.Context, group RunGroup) GroupResult {
	results := make([]ServiceResult, len(group.Services))
	p := pool.New().WithErrors().WithContext(ctx)
	for i, svc := range group.Services {
		i, svc := i, svc
		p.Go(func(ctx context.Context) error {
			outcome, err := d.deployService(ctx, svc)
			results[i] = ServiceResult{Service: svc.Service, Outcome: outcome, Err: err}
			return err
		})
	}
	err := p.Wait()
	return GroupResult{Order: group.Order, Services: results, Err: err}
}

// deployService is idempotent: a running container is left alone, anything
// else with the same name is removed and recreated.
func (d *Deployer) deployService(ctx context.Context, svc domain.ServiceConfiguration) (Outcome, error) {
	running, err := d.gw.ListContainers(ctx, runtime.ListFilter{
		Names:       []string{svc.Service},
		Network:     svc.Network,
		RunningOnly: true,
	})
	if err != nil {
		return OutcomeFailed, NewServiceError(svc.Service, "check running", err)
	}
	if len(running) > 0 {
		d.logger.Info().Str("container", svc.Service).Msg("Already running, skipping")
		return OutcomeSkipped, nil
	}

	existing, err := d.gw.ListContainers(ctx, runtime.ListFilter{Names: []string{svc.Service}})
	if err != nil {
		return OutcomeFailed, NewServiceError(svc.Service, "list existing", err)
	}
	if len(existing) > 0 {
		ids := make([]string, 0, len(existing))
		for _, c := range existing {
			ids = append(ids, c.ID)
		}
		if err := d.gw.Remove(ctx, ids); err != nil {
			return OutcomeFailed, NewServiceError(svc.Service, "remove stale container", err)
		}
		d.logger.Debug().Str("container", svc.Service).Strs("ids", ids).Msg("Removed stale container")
	}

	err = d.gw.Run(ctx, runtime.RunRequest{
		Name:    svc.Service,
		Network: svc.Network,
		Image:   svc.Image,
		Options: svc.Run.Options,
		Cmd:     svc.Run.Cmd,
	})
	if err != nil {
		return OutcomeFailed, NewServiceError(svc.Service, "run", err)
	}
	d.logger.Info().Str("container", svc.Service).Str("image", svc.Image).Msg("Container deployed")
	return OutcomeDeployed, nil
}

// ensureNetwork creates the network when inspection fails, retrying creation
// with exponential backoff.
func (d *Deployer) ensureNetwork(ctx context.Context, name string) error {
	if err := d.gw.NetworkInspect(ctx, name); err == nil {
		return nil
	}

	attempts := 0
	create := func() error {
		attempts++
		err := d.gw.NetworkCreate(ctx, name)
		if err == nil {
			d.logger.Info().Str("network", name).Msg("Created network")
			return nil
		}
		// Someone else may have created it in the meantime.
		if d.gw.NetworkInspect(ctx, name) == nil {
			return nil
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		d.logger.Warn().Err(err).Str("network", name).Int("attempt", attempts).Dur("retry_in", next).Msg("Network creation failed")
	}

	err := backoff.RetryNotify(create, d.networkBackOff(ctx), notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return NewNetworkSetupError(name, attempts, err)
}

// networkBackOff doubles the delay from the configured backoff, allowing
// d.retries attempts in total.
func (d *Deployer) networkBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.delay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.retries-1)), ctx)
}
