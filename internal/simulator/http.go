package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/types"
)

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the posture API. It implements the worker Recorder.
type Client struct {
	client *http.Client
	base   string
	runID  string
	seq    atomic.Int64
}

// NewClient creates a client for the API mounted at base. Each request
// carries a request id derived from runID.
func NewClient(base string, timeout time.Duration, runID string) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
		base:   strings.TrimRight(base, "/"),
		runID:  runID,
	}
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	var res types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("health: service reported not ok")
	}
	return nil
}

// Consent reads the flag.
func (c *Client) Consent(ctx context.Context) (bool, error) {
	var res types.ConsentResponse
	err := c.do(ctx, http.MethodGet, "/consent", nil, &res)
	return res.Consent, err
}

// SetConsent updates the flag and returns the state in effect.
func (c *Client) SetConsent(ctx context.Context, enabled bool) (bool, error) {
	var res types.ConsentResponse
	err := c.do(ctx, http.MethodPost, "/consent", types.ConsentRequest{Consent: &enabled}, &res)
	return res.Consent, err
}

// Record posts one classification to /track.
func (c *Client) Record(ctx context.Context, r model.TrackRequest) (bool, error) {
	conf := r.Confidence
	var res types.TrackResponse
	err := c.do(ctx, http.MethodPost, "/track", types.TrackRequest{Label: string(r.Label), Confidence: &conf}, &res)
	return res.Stored, err
}

// Summary fetches the aggregate for period.
func (c *Client) Summary(ctx context.Context, period model.Period) (model.SummaryResult, error) {
	var res types.SummaryResponse
	path := "/summary?period=" + url.QueryEscape(string(period))
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return model.SummaryResult{}, err
	}
	return model.SummaryResult{UprightRatio: res.UprightRatio, TotalEvents: res.TotalEvents}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.RequestIDHeader, c.runID+"-"+strconv.FormatInt(c.seq.Add(1), 10))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e types.ErrorResponse
		_ = json.Unmarshal(data, &e)
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, e.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
