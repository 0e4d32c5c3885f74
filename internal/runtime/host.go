package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

func init() {
	// The opener's own chatter would interleave with command output.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// BrowserHost opens URLs with the platform's default handler.
type BrowserHost struct {
	open   func(url string) error
	logger zerolog.Logger
}

func NewBrowserHost(logger zerolog.Logger) *BrowserHost {
	return &BrowserHost{open: browser.OpenURL, logger: logger}
}

func (h *BrowserHost) OpenURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.open(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	h.logger.Info().Str("url", url).Msg("Opened application in browser")
	return nil
}
