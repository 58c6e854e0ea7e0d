// Package config loads run settings from flags, UPTIMEPROBE_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/hamed0406/uptimeprobe/internal/probe"
)

type Mode string

const (
	ModeSingle     Mode = "single"
	ModeTimeseries Mode = "timeseries"
	ModeMulti      Mode = "multi"
	ModeResources  Mode = "resources"
)

// ModeDefaults are the settings a mode starts from.
type ModeDefaults struct {
	Interval  time.Duration
	Timeout   time.Duration
	Policy    probe.Policy
	CSVPrefix string // empty: no CSV unless --output is set
	UserAgent string
}

var modeDefaults = map[Mode]ModeDefaults{
	ModeSingle:     {Interval: time.Second, Timeout: 10 * time.Second, Policy: probe.SingleShot, UserAgent: "Downtime-Checker/1.0"},
	ModeTimeseries: {Interval: 2 * time.Second, Timeout: 60 * time.Second, Policy: probe.Pooled, CSVPrefix: "monitoring", UserAgent: "Downtime-Checker/1.0"},
	ModeMulti:      {Interval: time.Second, Timeout: 10 * time.Second, Policy: probe.SingleShot, CSVPrefix: "multitenant_downtime", UserAgent: "Tenant-Availability-Checker/1.0"},
	ModeResources:  {Interval: time.Second, Timeout: 5 * time.Second, CSVPrefix: "resource_monitoring"},
}

func (m Mode) Defaults() (ModeDefaults, bool) {
	d, ok := modeDefaults[m]
	return d, ok
}

// HTTP reports whether the mode probes URLs.
func (m Mode) HTTP() bool { return m != ModeResources }

type Config struct {
	Mode     Mode
	Targets  []string
	Interval time.Duration
	Timeout  time.Duration
	Grace    time.Duration
	Policy   probe.Policy
	Output   string // CSV path, empty when none is written

	PrometheusURL string
	CPUQuery      string
	MemoryQuery   string

	UserAgent string
	LogDir    string
	LogLevel  string
	Color     string // auto | always | never

	StatusAddr  string // empty disables the status API
	APIKeys     []string
	StatusRPM   int
	StatusBurst int
}

// ErrHelp is returned when -h/--help was requested; usage is already printed.
var ErrHelp = pflag.ErrHelp

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("uptimeprobe", pflag.ContinueOnError)
	fs.StringP("mode", "m", string(ModeSingle), "single | timeseries | multi | resources")
	fs.StringP("config", "c", "", "config file (yaml, toml or json)")
	fs.StringSlice("targets", nil, "target URLs (also taken from positional arguments)")
	fs.StringP("interval", "i", "0", "time between probes or cycles, e.g. 2s or 2000 (ms); 0 = mode default")
	fs.StringP("timeout", "t", "0", "per-probe timeout, e.g. 10s or 10000 (ms); 0 = mode default")
	fs.String("grace", "2s", "how long in-flight probes may finish after an interrupt")
	fs.StringP("output", "o", "", "CSV output path (default depends on mode)")
	fs.String("prometheus-url", "http://localhost:9090", "Prometheus base URL (resources mode)")
	fs.String("cpu-query", probe.DefaultCPUQuery, "PromQL for CPU percent (resources mode)")
	fs.String("memory-query", probe.DefaultMemoryQuery, "PromQL for memory GB (resources mode)")
	fs.String("user-agent", "", "User-Agent header (default depends on mode)")
	fs.String("log-dir", "logs", "directory of the rotated JSON log")
	fs.String("log-level", "info", "debug | info | warn | error")
	fs.String("color", "auto", "auto | always | never")
	fs.String("status-addr", "", "serve the live status API on this address, e.g. 127.0.0.1:8080")
	fs.StringSlice("api-keys", nil, "keys accepted by the status API (none = open)")
	fs.Int("status-rpm", 120, "status API requests per minute per client IP (0 = unlimited)")
	fs.Int("status-burst", 60, "status API burst per client IP")
	return fs
}

// Load parses args (without the program name). now names the default CSV file.
func Load(args []string, now time.Time) (Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("UPTIMEPROBE")
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		bindErr = multierr.Append(bindErr, v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f))
	})
	if bindErr != nil {
		return Config{}, fmt.Errorf("bind flags: %w", bindErr)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var durErr error
	cfg := Config{
		Mode:          Mode(strings.ToLower(strings.TrimSpace(v.GetString("mode")))),
		Targets:       list(v, "targets"),
		Interval:      duration(v, "interval", &durErr),
		Timeout:       duration(v, "timeout", &durErr),
		Grace:         duration(v, "grace", &durErr),
		Output:        v.GetString("output"),
		PrometheusURL: strings.TrimRight(v.GetString("prometheus_url"), "/"),
		CPUQuery:      v.GetString("cpu_query"),
		MemoryQuery:   v.GetString("memory_query"),
		UserAgent:     v.GetString("user_agent"),
		LogDir:        v.GetString("log_dir"),
		LogLevel:      v.GetString("log_level"),
		Color:         v.GetString("color"),
		StatusAddr:    v.GetString("status_addr"),
		APIKeys:       list(v, "api_keys"),
		StatusRPM:     v.GetInt("status_rpm"),
		StatusBurst:   v.GetInt("status_burst"),
	}
	if args := fs.Args(); len(args) > 0 {
		cfg.Targets = args
	}
	if durErr != nil {
		return cfg, durErr
	}

	d, ok := cfg.Mode.Defaults()
	if !ok {
		return cfg, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.Interval == 0 {
		cfg.Interval = d.Interval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = d.UserAgent
	}
	cfg.Policy = d.Policy
	if cfg.Output == "" && d.CSVPrefix != "" {
		cfg.Output = fmt.Sprintf("%s_%d.csv", d.CSVPrefix, now.UnixMilli())
	}

	return cfg, cfg.Validate()
}

// list reads a string list that may arrive as a slice (flags, files) or as a
// comma separated string (environment).
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// duration reads a time setting. Bare numbers are milliseconds, from any
// source; strings with a unit go through time.ParseDuration.
func duration(v *viper.Viper, key string, errs *error) time.Duration {
	var (
		d   time.Duration
		err error
	)
	switch raw := v.Get(key).(type) {
	case time.Duration:
		d = raw
	case string:
		raw = strings.TrimSpace(raw)
		if ms, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			d = time.Duration(ms) * time.Millisecond
		} else {
			d, err = time.ParseDuration(raw)
		}
	default:
		var ms int64
		if ms, err = cast.ToInt64E(raw); err == nil {
			d = time.Duration(ms) * time.Millisecond
		}
	}
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
	}
	return d
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Hostname() == "" {
		return errors.New("missing host")
	}
	return nil
}

func (c Config) Validate() error {
	var err error
	if _, ok := c.Mode.Defaults(); !ok {
		err = multierr.Append(err, fmt.Errorf("unknown mode %q", c.Mode))
	}

	if c.Mode.HTTP() {
		switch {
		case len(c.Targets) == 0:
			err = multierr.Append(err, errors.New("at least one target URL is required"))
		case len(c.Targets) > 1 && c.Mode != ModeMulti:
			err = multierr.Append(err, fmt.Errorf("mode %s takes exactly one target, got %d", c.Mode, len(c.Targets)))
		}
		for _, t := range c.Targets {
			if uerr := validURL(t); uerr != nil {
				err = multierr.Append(err, fmt.Errorf("target %q: %w", t, uerr))
			}
		}
	} else {
		if len(c.Targets) > 0 {
			err = multierr.Append(err, errors.New("resources mode takes no targets"))
		}
		if uerr := validURL(c.PrometheusURL); uerr != nil {
			err = multierr.Append(err, fmt.Errorf("prometheus url %q: %w", c.PrometheusURL, uerr))
		}
	}

	if c.Interval < time.Millisecond {
		err = multierr.Append(err, fmt.Errorf("interval must be at least 1ms, got %v", c.Interval))
	}
	if c.Timeout < time.Millisecond {
		err = multierr.Append(err, fmt.Errorf("timeout must be at least 1ms, got %v", c.Timeout))
	}
	if c.Grace < 0 {
		err = multierr.Append(err, errors.New("grace must not be negative"))
	}
	if _, lerr := zapcore.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log level: %w", lerr))
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		err = multierr.Append(err, fmt.Errorf("color must be auto, always or never, got %q", c.Color))
	}
	return err
}

// Usage returns the flag help text.
func Usage() string {
	return "usage: uptimeprobe [flags] [target-url ...]\n\n" + newFlagSet().FlagUsages()
}
