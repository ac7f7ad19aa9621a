package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/platform/config"

	log "github.com/sirupsen/logrus"
)

// Mode selects the response shape requested from the evaluator.
type Mode string

const (
	ModeFull Mode = "full"
	ModeDuel Mode = "duel"
)

// EvaluationRequest is the body posted to the external evaluator.
type EvaluationRequest struct {
	Mode             Mode   `json:"mode"`
	ProblemTitle     string `json:"problemTitle"`
	ProblemStatement string `json:"problemStatement"`
	Language         string `json:"language"`
	Code             string `json:"code"`
	Prompt           string `json:"prompt"`
}

// Evaluator returns the evaluator's raw response body. Parsing is left to the caller.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) ([]byte, error)
}

const maxResponseBytes = 1 << 20

type HTTPEvaluator struct {
	client *http.Client
	url    string
	apiKey string
}

func NewHTTPEvaluator(url, apiKey string, timeout time.Duration) *HTTPEvaluator {
	return &HTTPEvaluator{
		client: &http.Client{Timeout: timeout},
		url:    url,
		apiKey: apiKey,
	}
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluation request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, common.Errorf("failed to build evaluation request: %v: %w", err, common.ErrEvaluationUnavailable)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, common.Errorf("evaluator request failed: %v: %w", err, common.ErrEvaluationUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, common.Errorf("failed to read evaluator response: %v: %w", err, common.ErrEvaluationUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("WARN: Evaluator returned status %d", resp.StatusCode)
		return nil, common.Errorf("evaluator returned status %d: %w", resp.StatusCode, common.ErrEvaluationUnavailable)
	}
	return raw, nil
}

// MockEvaluator accepts every submission. Used when no evaluator URL is configured.
type MockEvaluator struct {
	TestCases int
}

func (e MockEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errorf("mock evaluation cancelled: %v: %w", err, common.ErrEvaluationUnavailable)
	}
	if req.Mode == ModeDuel {
		return []byte(`{"correct":true}`), nil
	}

	n := e.TestCases
	if n <= 0 {
		n = 5
	}
	type testCase struct {
		ID          int    `json:"id"`
		Status      string `json:"status"`
		Input       string `json:"input"`
		Expected    string `json:"expected"`
		Actual      string `json:"actual"`
		Description string `json:"description"`
		Score       int    `json:"score"`
	}
	cases := make([]testCase, n)
	for i := range cases {
		cases[i] = testCase{
			ID:          i + 1,
			Status:      "passed",
			Input:       fmt.Sprintf("case %d", i+1),
			Expected:    "ok",
			Actual:      "ok",
			Description: "Mock evaluation",
			Score:       100 / n,
		}
	}
	return json.Marshal(map[string]interface{}{
		"status":      "AC",
		"totalScore":  100,
		"maxScore":    100,
		"memoryUsage": "1024 KB",
		"runtime":     "10ms",
		"testCases":   cases,
	})
}

// NewEvaluatorFromConfig picks the HTTP evaluator when a URL is configured and the mock otherwise.
func NewEvaluatorFromConfig(cfg *config.Config) Evaluator {
	if cfg.EvaluatorURL == "" {
		log.Warn("WARN: EVALUATOR_URL is empty, using the mock evaluator")
		return MockEvaluator{}
	}
	return NewHTTPEvaluator(cfg.EvaluatorURL, cfg.EvaluatorAPIKey, cfg.EvaluatorTimeout)
}
