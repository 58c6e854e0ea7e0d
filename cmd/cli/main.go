// Command cli prints the live status of a running uptimeprobe that was
// started with --status-addr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type targetSummary struct {
	Target struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"target"`
	Checks       int64    `json:"checks"`
	Failures     int64    `json:"failures"`
	P95MS        *float64 `json:"p95_ms"`
	DowntimeS    float64  `json:"downtime_s"`
	Availability *float64 `json:"availability"`
	Down         bool     `json:"down"`
}

type summary struct {
	Mode      string          `json:"mode"`
	Running   bool            `json:"running"`
	DurationS float64         `json:"duration_s"`
	Targets   []targetSummary `json:"targets"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("cli", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("api", "http://127.0.0.1:8080", "status API base URL")
	fs.String("api-key", "", "status API key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	v := viper.New()
	v.SetEnvPrefix("UPTIMEPROBE")
	v.AutomaticEnv()
	_ = v.BindPFlag("api", fs.Lookup("api"))
	_ = v.BindPFlag("api_key", fs.Lookup("api-key"))

	s, err := fetch(ctx, strings.TrimRight(v.GetString("api"), "/"), v.GetString("api_key"))
	if err != nil {
		fmt.Fprintln(stderr, "Error contacting API:", err)
		return 1
	}

	state := "stopped"
	if s.Running {
		state = "running"
	}
	fmt.Fprintf(stdout, "mode=%s %s for %.1fs\n", s.Mode, state, s.DurationS)
	up := color.New(color.FgGreen)
	down := color.New(color.FgRed)
	for _, t := range s.Targets {
		mark := up.Sprint("UP  ")
		if t.Down {
			mark = down.Sprint("DOWN")
		}
		fmt.Fprintf(stdout, "%s %s %s checks=%d failed=%d p95=%sms downtime=%.2fs availability=%s%%\n",
			mark, t.Target.ID, t.Target.URL, t.Checks, t.Failures, opt(t.P95MS), t.DowntimeS, opt(t.Availability))
	}
	return 0
}

func opt(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fetch(ctx context.Context, base, key string) (*summary, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/summary", nil)
	if err != nil {
		return nil, err
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status: %s", resp.Status)
	}
	var s summary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
