// Command termrun-demo is a fuzzy process picker: a small interactive
// application that exercises the runtime end to end (input decoding, frame
// pacing, commands, timers, and subscriptions) against a real terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atomicstack/termrun"
	"github.com/atomicstack/termrun/input"
	"github.com/atomicstack/termrun/internal/config"
	"github.com/atomicstack/termrun/internal/logging"
	"github.com/atomicstack/termrun/internal/logging/events"
	"github.com/atomicstack/termrun/terminal"
	"golang.org/x/term"
)

func main() {
	cfg := config.MustLoad()
	logging.Configure(cfg.Logging.FilePath)
	logging.SetTraceEnabled(cfg.Logging.Trace)

	traceStartup(cfg)

	if err := run(cfg); err != nil {
		logging.Error(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if !terminal.IsTerminal(os.Stdin) || !terminal.IsTerminal(os.Stdout) {
		return fmt.Errorf("termrun-demo requires a terminal on stdin and stdout")
	}

	restore, err := terminal.MakeRaw(os.Stdin)
	if err != nil {
		return err
	}
	defer restore()

	reader, err := input.NewReader(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	reader.Start()
	defer reader.Stop()

	rtCfg := cfg.RuntimeConfig()
	rtCfg.KeyHandler = func(k termrun.KeyMsg) termrun.Msg {
		return keyMsg{key: k.KeyEvent}
	}
	rtCfg.MouseHandler = func(m termrun.MouseMsg) termrun.Msg {
		if m.Action == input.MousePress {
			return clickMsg{y: m.Y}
		}
		return nil
	}
	rtCfg.ResizeHandler = func(r termrun.ResizeMsg) termrun.Msg {
		return sizeMsg{width: r.Width, height: r.Height}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := termrun.New(newPicker(), rtCfg,
		termrun.WithTerminal(terminal.New(os.Stdout)),
		termrun.WithInput(reader),
	)
	err = rt.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func traceStartup(cfg config.Config) {
	events.Runtime.Start(startupTracePayload(cfg))
}

// startupTracePayload bundles runtime context for trace logging.
func startupTracePayload(cfg config.Config) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags))
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	flags["trace"] = cfg.Logging.Trace
	flags["logFile"] = cfg.Logging.FilePath
	payload := map[string]interface{}{
		"argv":  cfg.Args,
		"flags": flags,
	}
	if exe, err := os.Executable(); err == nil {
		payload["executable"] = exe
	} else {
		payload["executableError"] = err.Error()
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	} else {
		payload["cwdError"] = err.Error()
	}
	payload["tty"] = collectTTYDetails()
	return payload
}

type ttyDetails struct {
	Detected *ttyDetected     `json:"detected,omitempty"`
	Probes   []ttyProbeResult `json:"probes"`
}

type ttyDetected struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ttyProbeResult struct {
	Name       string `json:"name"`
	IsTerminal bool   `json:"is_terminal"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Error      string `json:"error,omitempty"`
}

// collectTTYDetails inspects standard descriptors for terminal support and dimensions.
func collectTTYDetails() ttyDetails {
	probes := []struct {
		name string
		fd   uintptr
	}{
		{"stdin", os.Stdin.Fd()},
		{"stdout", os.Stdout.Fd()},
		{"stderr", os.Stderr.Fd()},
	}
	results := make([]ttyProbeResult, 0, len(probes))
	var detected *ttyDetected
	for _, probe := range probes {
		entry := ttyProbeResult{Name: probe.name}
		fd := int(probe.fd)
		if fd >= 0 && term.IsTerminal(fd) {
			entry.IsTerminal = true
			if width, height, err := term.GetSize(fd); err == nil {
				entry.Width = width
				entry.Height = height
				if detected == nil {
					detected = &ttyDetected{Source: probe.name, Width: width, Height: height}
				}
			} else {
				entry.Error = err.Error()
			}
		} else {
			entry.IsTerminal = false
		}
		results = append(results, entry)
	}
	return ttyDetails{Detected: detected, Probes: results}
}
