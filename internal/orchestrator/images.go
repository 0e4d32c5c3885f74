package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

const maxConcurrentPulls = 3

type ImageReport struct {
	Present []string
	Missing []string
}

func (r ImageReport) Complete() bool {
	return len(r.Missing) == 0
}

// ImageManager checks and downloads the images of a service set.
type ImageManager struct {
	gw     imageGateway
	logger zerolog.Logger
}

func NewImageManager(gw imageGateway, logger zerolog.Logger) *ImageManager {
	return &ImageManager{gw: gw, logger: logger}
}

func (m *ImageManager) Present(ctx context.Context, services []domain.ServiceConfiguration) (ImageReport, error) {
	tags, err := m.gw.ListImages(ctx)
	if err != nil {
		return ImageReport{}, fmt.Errorf("check images: %w", err)
	}
	var report ImageReport
	for _, ref := range domain.Images(services) {
		if hasImage(tags, ref) {
			report.Present = append(report.Present, ref)
		} else {
			report.Missing = append(report.Missing, ref)
		}
	}
	return report, nil
}

// Pull downloads the missing images, a few at a time. All pulls are attempted;
// failures are returned joined.
func (m *ImageManager) Pull(ctx context.Context, services []domain.ServiceConfiguration) error {
	report, err := m.Present(ctx, services)
	if err != nil {
		return err
	}
	if report.Complete() {
		m.logger.Info().Msg("All images already present")
		return nil
	}

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(maxConcurrentPulls)
	for _, ref := range report.Missing {
		ref := ref
		p.Go(func(ctx context.Context) error {
			m.logger.Info().Str("image", ref).Msg("Pulling image")
			if err := m.gw.PullImage(ctx, ref); err != nil {
				m.logger.Error().Err(err).Str("image", ref).Msg("Image pull failed")
				return err
			}
			m.logger.Info().Str("image", ref).Msg("Image pulled")
			return nil
		})
	}
	return p.Wait()
}

// hasImage reports whether ref is among the local repo tags. A reference
// without a tag matches ":latest".
func hasImage(tags []string, ref string) bool {
	repo, tag := domain.SplitImage(ref)
	want := repo + ":" + tag
	for _, t := range tags {
		if t == ref || t == want {
			return true
		}
	}
	return false
}
