//go:build !tinygo

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"inkterm/app"
	"inkterm/hal"
	"inkterm/ink/config"
	"inkterm/internal/buildinfo"
	"inkterm/internal/logging"
)

func main() {
	fs := pflag.NewFlagSet("inkterm", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	ticks := fs.Uint64("ticks", 0, "Stop after N frames (0 = run until the child exits)")
	logFile := fs.String("log-file", "", "Write the log to this file instead of stderr")
	version := fs.Bool("version", false, "Print the version and exit")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nA terminal emulator for e-paper displays.\n\nFlags:\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if *version {
		fmt.Println("inkterm", buildinfo.Short())
		return
	}

	cfg, err := config.FromFlags(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	closeLog, err := setupLogging(cfg, *logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *ticks); err != nil {
		if errors.Is(err, app.ErrChildExited) || errors.Is(err, context.Canceled) {
			return
		}
		closeLog()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the process logger. The tcell backend owns the
// terminal, so without a log file its log is dropped.
func setupLogging(cfg config.Config, path string) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	case cfg.General.Backend == "tcell":
		logging.SetLogger(nil)
		return closeFn, nil
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: logging.ParseLevel(cfg.General.LogLevel)})
	logging.SetLogger(slog.New(h))
	logging.Logger().Info("inkterm: starting", "version", buildinfo.Short(), "backend", cfg.General.Backend)
	return closeFn, nil
}

func run(ctx context.Context, cfg config.Config, ticks uint64) error {
	newApp := app.NewApp(cfg)
	loop := hal.LoopConfig{Hz: cfg.Display.Hz, Ticks: ticks}
	switch cfg.General.Backend {
	case "window":
		return hal.RunWindow(ctx, newApp, hal.WindowConfig{
			LoopConfig:    loop,
			Width:         cfg.Display.Width,
			Height:        cfg.Display.Height,
			EmulateEPaper: cfg.Display.EmulateEPaper,
		})
	case "headless":
		return hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{
			LoopConfig:    loop,
			Width:         cfg.Display.Width,
			Height:        cfg.Display.Height,
			EmulateEPaper: cfg.Display.EmulateEPaper,
		})
	case "fbdev":
		dev, err := hal.OpenFBDev(hal.FBDevConfig{
			Path:     cfg.Display.FBDev,
			Keyboard: true,
			Bell:     hal.NewSpeakerBell(),
		})
		if err != nil {
			return err
		}
		return hal.Run(ctx, dev, newApp, loop)
	case "tcell":
		dev, err := hal.NewTcellDevice(hal.TcellConfig{EmulateEPaper: cfg.Display.EmulateEPaper})
		if err != nil {
			return err
		}
		return hal.Run(ctx, dev, newApp, loop)
	}
	return fmt.Errorf("unknown backend %q", cfg.General.Backend)
}
