//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"io"
	"time"

	"inkterm/ink/color"
	"inkterm/internal/logging"
)

// LoopConfig controls the frame loop of the non-window runners.
type LoopConfig struct {
	Hz int
	// Ticks stops the loop after that many frames; zero runs until ctx ends.
	Ticks uint64
}

// HeadlessConfig describes the off-screen surface of RunHeadless.
type HeadlessConfig struct {
	LoopConfig
	Width, Height int
	EmulateEPaper bool
}

// RunHeadless runs the application against an in-memory framebuffer.
func RunHeadless(ctx context.Context, newApp NewApp, cfg HeadlessConfig) error {
	fb := NewFramebuffer(cfg.Width, cfg.Height, color.RGBA8888, cfg.EmulateEPaper)
	logging.Logger().Info("headless: framebuffer", "w", cfg.Width, "h", cfg.Height, "epaper", cfg.EmulateEPaper)
	return Run(ctx, fb, newApp, cfg.LoopConfig)
}

// Run builds the application on dev and steps it at cfg.Hz until ctx is
// done, the step fails or cfg.Ticks frames have passed. The application and
// then dev are closed on return.
func Run(ctx context.Context, dev Device, newApp NewApp, cfg LoopConfig) (err error) {
	defer func() {
		if cerr := dev.Close(); err == nil {
			err = cerr
		}
	}()
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid hz: %d", cfg.Hz)
	}

	app, err := newApp(dev)
	if err != nil {
		return err
	}
	if c, ok := app.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}()
	}

	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if app != nil {
				if err := app.Step(); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
