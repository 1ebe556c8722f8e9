package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/KaramelBytes/taxisim-cli/internal/logx"
)

// RemoteModel forwards features to an HTTP prediction endpoint.
type RemoteModel struct {
	httpClient       *http.Client
	host             string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

// NewRemoteModel targets host (e.g. http://127.0.0.1:8080). Zero knobs fall back to defaults.
func NewRemoteModel(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *RemoteModel {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 1
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = time.Second
	}
	return &RemoteModel{
		httpClient:       &http.Client{Timeout: httpTimeout},
		host:             strings.TrimRight(host, "/"),
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

type predictRequest struct {
	Features []string            `json:"features"`
	Rows     []predictRequestRow `json:"rows"`
}

type predictRequestRow struct {
	Area   string             `json:"area"`
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Ping checks GET {host}/health answers 2xx.
func (m *RemoteModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &UnreachableError{Host: m.host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(readAPIError(resp))
	}
	return nil
}

// Predict posts the feature rows to {host}/predict. Network failures and 5xx
// responses are retried with jittered exponential backoff.
func (m *RemoteModel) Predict(ctx context.Context, f Features) (*Predictions, error) {
	body := predictRequest{Features: f.Names, Rows: make([]predictRequestRow, len(f.Rows))}
	for i, r := range f.Rows {
		body.Rows[i] = predictRequestRow{Area: r.Area, Date: r.Date, Values: r.Values}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := m.host + "/predict"
	backoff := m.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= m.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.httpClient.Do(req)
		if err != nil {
			lastErr = &UnreachableError{Host: m.host, Err: err}
			if isRetryableNetErr(err) && attempt < m.retryMaxAttempts {
				m.sleep(ctx, &backoff)
				continue
			}
			return nil, lastErr
		}
		var out predictResponse
		retry := false
		func() {
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				apiErr := readAPIError(resp)
				lastErr = classify(apiErr)
				retry = resp.StatusCode >= 500
				return
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				lastErr = fmt.Errorf("decode response: %w", err)
				return
			}
			lastErr = nil
		}()
		if lastErr == nil {
			if len(out.Predictions) != len(f.Rows) {
				return nil, fmt.Errorf("model returned %d predictions for %d rows", len(out.Predictions), len(f.Rows))
			}
			return &Predictions{Rows: f.Rows, Values: out.Predictions}, nil
		}
		if !retry || attempt >= m.retryMaxAttempts {
			break
		}
		logx.Warnf("remote model attempt %d failed, retrying: %v", attempt, lastErr)
		m.sleep(ctx, &backoff)
	}
	return nil, lastErr
}

func (m *RemoteModel) sleep(ctx context.Context, backoff *time.Duration) {
	d := withJitter(*backoff)
	if m.retryMaxDelay > 0 && d > m.retryMaxDelay {
		d = m.retryMaxDelay
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	*backoff *= 2
}

func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw}
	if msg, ok := raw["error"].(string); ok {
		apiErr.Message = msg
	}
	if msg, ok := raw["message"].(string); ok && apiErr.Message == "" {
		apiErr.Message = msg
	}
	if code, ok := raw["code"].(string); ok {
		apiErr.Code = code
	}
	return apiErr
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 200 * time.Millisecond
	}
	// [0.8, 1.2)
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
