// Package preflight verifies host-version compatibility and inference
// endpoint connectivity before the plugin is rolled out.
package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/compat"
)

// Check is the outcome of one preflight probe.
type Check struct {
	Name   string         `json:"name"`
	OK     bool           `json:"ok"`
	Status int            `json:"status,omitempty"`
	Detail string         `json:"detail"`
	URL    string         `json:"url,omitempty"`
	Body   map[string]any `json:"body,omitempty"`
}

// Report aggregates all preflight checks.
type Report struct {
	OK       bool    `json:"ok"`
	Failures int     `json:"failures"`
	Checks   []Check `json:"checks"`
}

// Options configures a preflight run.
type Options struct {
	HostVersion      string
	SupportedSpec    string
	InferenceBaseURL string
	Timeout          time.Duration
}

// endpointPaths are probed on the inference service; each must answer with
// a JSON object.
var endpointPaths = []string{"/healthz", "/readyz", "/v1/model"}

// Run executes the version gate check and the endpoint probes. Endpoint
// probes run concurrently; the report lists the version check first and the
// endpoints in their declared order.
func Run(ctx context.Context, opts Options) *Report {
	report := &Report{}

	versionCheck := Check{Name: "openclaw_version", OK: true,
		Detail: fmt.Sprintf("%s matches %s", opts.HostVersion, opts.SupportedSpec)}
	if err := compat.AssertSupported(opts.HostVersion, opts.SupportedSpec); err != nil {
		versionCheck.OK = false
		versionCheck.Detail = err.Error()
	}
	report.Checks = append(report.Checks, versionCheck)

	base := strings.TrimRight(opts.InferenceBaseURL, "/")
	client := &http.Client{Timeout: opts.Timeout}
	endpointChecks := make([]Check, len(endpointPaths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range endpointPaths {
		g.Go(func() error {
			endpointChecks[i] = checkJSONEndpoint(ctx, client, base+path)
			return nil
		})
	}
	g.Wait()
	report.Checks = append(report.Checks, endpointChecks...)

	for _, check := range report.Checks {
		if !check.OK {
			report.Failures++
		}
	}
	report.OK = report.Failures == 0
	return report
}

func checkJSONEndpoint(ctx context.Context, client *http.Client, url string) Check {
	name := url[strings.LastIndex(url, "/")+1:]
	check := Check{Name: "endpoint:" + name, URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	resp, err := client.Do(req)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	defer resp.Body.Close()

	check.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		check.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return check
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		check.Detail = "response is not a JSON object"
		return check
	}

	check.OK = true
	check.Detail = "ok"
	check.Body = body
	return check
}
