// Command preflight checks a configuration before a long monitoring run: it
// takes the same flags as uptimeprobe and verifies the output and log paths,
// the targets' DNS and the Prometheus endpoint.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"go.uber.org/multierr"

	"github.com/hamed0406/uptimeprobe/internal/config"
	"github.com/hamed0406/uptimeprobe/internal/probe"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type checker struct {
	out, errOut io.Writer
	failed      bool
}

func (c *checker) ok(msg string) {
	color.New(color.FgGreen).Fprintln(c.out, "✔", msg)
}

func (c *checker) warn(msg string) {
	color.New(color.FgYellow).Fprintln(c.errOut, "⚠", msg)
}

func (c *checker) fail(msg string) {
	c.failed = true
	color.New(color.FgRed).Fprintln(c.errOut, "✖", msg)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &checker{out: stdout, errOut: stderr}

	cfg, err := config.Load(args, time.Now())
	if err != nil {
		for _, e := range multierr.Errors(err) {
			c.fail(e.Error())
		}
		return 1
	}
	c.ok(fmt.Sprintf("mode=%s interval=%s timeout=%s", cfg.Mode, cfg.Interval, cfg.Timeout))

	if cfg.Output != "" {
		c.writable(filepath.Dir(cfg.Output), "output directory")
	} else {
		c.warn("no CSV output; only the console report will remain")
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		c.fail("log dir: " + err.Error())
	} else {
		c.writable(cfg.LogDir, "log directory")
	}

	for _, t := range cfg.Targets {
		d := probe.DiagnoseURL(ctx, t)
		if d.Class == "RESOLVES" {
			c.ok(fmt.Sprintf("%s resolves", d.Domain))
			continue
		}
		c.warn(fmt.Sprintf("%s: DNS %s %s", d.Domain, d.Class, d.ResolverError))
	}

	if cfg.Mode == config.ModeResources {
		qctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		_, err := probe.NewPromQuerier(cfg.PrometheusURL, cfg.Timeout).Query(qctx, "vector(1)")
		cancel()
		if err != nil {
			c.fail("prometheus " + cfg.PrometheusURL + ": " + err.Error())
		} else {
			c.ok("prometheus " + cfg.PrometheusURL + " answers queries")
		}
	}

	if cfg.StatusAddr != "" && len(cfg.APIKeys) == 0 {
		c.warn("status API on " + cfg.StatusAddr + " has no API keys; anyone who can reach it can read it")
	}

	if c.failed {
		return 1
	}
	c.ok("preflight passed")
	return 0
}

func (c *checker) writable(dir, what string) {
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		c.fail(what + " not writable: " + err.Error())
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	c.ok(what + " writable: " + dir)
}
