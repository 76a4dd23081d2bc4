// Package advisory implements sim.Advisor against an HTTP/JSON advisory
// service. The service exposes three POST endpoints:
//
//	/audit         AdvisoryRequest  -> AuditResult
//	/autopilot     AdvisoryRequest  -> AutopilotPolicy
//	/pathological  {"config": ...}  -> [PathologicalTask]
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phasesim/phasesim/sim"
)

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// Client sends advisory requests to the advisory service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ sim.Advisor = (*Client)(nil)

// NewClient creates an advisory client. timeout caps every HTTP exchange
// on top of the caller's context deadline; 0 means 30s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Audit requests an integrity audit of the recent metrics window.
func (c *Client) Audit(ctx context.Context, req sim.AdvisoryRequest) (*sim.AuditResult, error) {
	var out sim.AuditResult
	if err := c.post(ctx, "/audit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Autopilot requests a configuration policy.
func (c *Client) Autopilot(ctx context.Context, req sim.AdvisoryRequest) (*sim.AutopilotPolicy, error) {
	var out sim.AutopilotPolicy
	if err := c.post(ctx, "/autopilot", req, &out); err != nil {
		return nil, err
	}
	if out.ConcurrencyLimit < 1 || out.CPUBudget <= 0 || out.LatencyHardCeiling <= 0 {
		return nil, fmt.Errorf("autopilot: policy out of range (cpu=%v ceiling=%v concurrency=%d)",
			out.CPUBudget, out.LatencyHardCeiling, out.ConcurrencyLimit)
	}
	return &out, nil
}

// Pathological requests synthetic stress payloads for cfg.
func (c *Client) Pathological(ctx context.Context, cfg sim.SimulationConfig) ([]sim.PathologicalTask, error) {
	body := struct {
		Config sim.SimulationConfig `json:"config"`
	}{Config: cfg}
	var out []sim.PathologicalTask
	if err := c.post(ctx, "/pathological", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", path, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyData, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(bodyData)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	logrus.Debugf("advisory %s answered in %v", path, time.Since(start))
	return nil
}
