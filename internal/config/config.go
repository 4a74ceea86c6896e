// Package config loads configuration for the demo binary. Precedence, lowest
// to highest: built-in defaults, an optional TOML file, environment
// variables, command-line flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/atomicstack/termrun"
)

// Config captures everything the demo binary needs at startup.
type Config struct {
	Runtime Runtime
	Logging Logging
	Flags   map[string]string
	Args    []string
}

// Runtime mirrors the termrun.Config knobs exposed to users.
type Runtime struct {
	FPS            int      `toml:"fps"`
	Mouse          bool     `toml:"mouse"`
	Fullscreen     bool     `toml:"fullscreen"`
	Debug          bool     `toml:"debug"`
	BufferSize     int      `toml:"buffer_size"`
	UpdateTimeout  Duration `toml:"update_timeout"`
	CommandTimeout Duration `toml:"command_timeout"`
	MaxCommands    int      `toml:"max_commands"`
	PerfMonitoring bool     `toml:"perf_monitoring"`
}

// Logging controls the log file destination and trace verbosity.
type Logging struct {
	FilePath string `toml:"file"`
	Trace    bool   `toml:"trace"`
}

// Duration makes time.Duration decodable from TOML strings like "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

const (
	envConfigFile = "TERMRUN_DEMO_CONFIG"
	envFPS        = "TERMRUN_DEMO_FPS"
	envMouse      = "TERMRUN_DEMO_MOUSE"
	envFullscreen = "TERMRUN_DEMO_FULLSCREEN"
	envDebug      = "TERMRUN_DEMO_DEBUG"
	envTrace      = "TERMRUN_DEMO_TRACE"
	envLogFile    = "TERMRUN_DEMO_LOG_FILE"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Runtime: Runtime{
			FPS:            termrun.DefaultFPS,
			Fullscreen:     true,
			BufferSize:     termrun.DefaultMessageBufferSize,
			UpdateTimeout:  Duration{termrun.DefaultUpdateTimeout},
			CommandTimeout: Duration{termrun.DefaultCommandTimeout},
			MaxCommands:    termrun.DefaultMaxConcurrentCommands,
		},
	}
}

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs allows tests to supply specific args/environment.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	base := Default()
	if path := configFilePath(env); path != "" {
		loaded, err := LoadFile(path, base)
		if err != nil {
			return Config{}, err
		}
		base = loaded
	}

	fs := flag.NewFlagSet("termrun-demo", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	fps := fs.Int("fps", envOrInt(env, envFPS, base.Runtime.FPS), "target frame rate")
	mouse := fs.Bool("mouse", envOrBool(env, envMouse, base.Runtime.Mouse), "enable mouse support")
	fullscreen := fs.Bool("fullscreen", envOrBool(env, envFullscreen, base.Runtime.Fullscreen), "use the alternate screen")
	debug := fs.Bool("debug", envOrBool(env, envDebug, base.Runtime.Debug), "enable debug diagnostics")
	buffer := fs.Int("buffer", base.Runtime.BufferSize, "message buffer size")
	perf := fs.Bool("perf", base.Runtime.PerfMonitoring, "emit update/render timing messages")
	trace := fs.Bool("trace", envOrBool(env, envTrace, base.Logging.Trace), "enable verbose JSON trace logging")
	logFile := fs.String("log-file", envOrDefault(env, envLogFile, base.Logging.FilePath), "path to the log file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *fps <= 0 {
		return Config{}, fmt.Errorf("fps must be > 0 (got %d)", *fps)
	}
	if *buffer <= 0 {
		return Config{}, fmt.Errorf("buffer must be > 0 (got %d)", *buffer)
	}

	cfg := base
	cfg.Runtime.FPS = *fps
	cfg.Runtime.Mouse = *mouse
	cfg.Runtime.Fullscreen = *fullscreen
	cfg.Runtime.Debug = *debug
	cfg.Runtime.BufferSize = *buffer
	cfg.Runtime.PerfMonitoring = *perf
	cfg.Logging.Trace = *trace
	cfg.Logging.FilePath = *logFile
	cfg.Flags = map[string]string{
		"fps":        strconv.Itoa(*fps),
		"mouse":      strconv.FormatBool(*mouse),
		"fullscreen": strconv.FormatBool(*fullscreen),
		"debug":      strconv.FormatBool(*debug),
		"buffer":     strconv.Itoa(*buffer),
		"perf":       strconv.FormatBool(*perf),
		"trace":      strconv.FormatBool(*trace),
		"logFile":    *logFile,
	}
	cfg.Args = append([]string(nil), args...)

	return cfg, nil
}

// LoadFile decodes a TOML config file over base.
func LoadFile(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadReader(f, base)
}

// LoadReader decodes TOML configuration over base. Exposed for tests.
func LoadReader(r io.Reader, base Config) (Config, error) {
	cfg := base
	var file struct {
		Runtime Runtime `toml:"runtime"`
		Logging Logging `toml:"logging"`
	}
	file.Runtime = cfg.Runtime
	file.Logging = cfg.Logging
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Runtime = file.Runtime
	cfg.Logging = file.Logging
	return cfg, nil
}

// RuntimeConfig converts the loaded values into a termrun.Config.
func (c Config) RuntimeConfig() termrun.Config {
	return termrun.Config{
		FPS:                   c.Runtime.FPS,
		EnableMouse:           c.Runtime.Mouse,
		Fullscreen:            c.Runtime.Fullscreen,
		Debug:                 c.Runtime.Debug,
		MessageBufferSize:     c.Runtime.BufferSize,
		UpdateTimeout:         c.Runtime.UpdateTimeout.Duration,
		CommandTimeout:        c.Runtime.CommandTimeout.Duration,
		MaxConcurrentCommands: c.Runtime.MaxCommands,
		PerformanceMonitoring: c.Runtime.PerfMonitoring,
	}
}

// configFilePath returns the explicit or conventional config file location.
// Search order: $TERMRUN_DEMO_CONFIG, $XDG_CONFIG_HOME/termrun/config.toml,
// ~/.config/termrun/config.toml. Empty when none exists.
func configFilePath(env map[string]string) string {
	if p, ok := env[envConfigFile]; ok && strings.TrimSpace(p) != "" {
		return p
	}
	var roots []string
	if xdg, ok := env["XDG_CONFIG_HOME"]; ok && xdg != "" {
		roots = append(roots, xdg)
	}
	if home, ok := env["HOME"]; ok && home != "" {
		roots = append(roots, filepath.Join(home, ".config"))
	}
	for _, root := range roots {
		p := filepath.Join(root, "termrun", "config.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

func envOrInt(env map[string]string, key string, fallback int) int {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(env map[string]string, key string, fallback bool) bool {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}
