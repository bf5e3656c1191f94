// Package oracle consumes an external text-classification service as a
// black-box function, falling back to the built-in heuristic engine whenever
// the service is unavailable.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/earlyspark/scrollguard/internal/classify"
	"github.com/earlyspark/scrollguard/internal/content"
)

// DefaultTimeout bounds one oracle call: a few times the per-item latency
// budget, so a stalled call never holds a worker slot indefinitely.
const DefaultTimeout = 600 * time.Millisecond

// Result is the oracle's wire contract.
type Result struct {
	Success      bool    `json:"success"`
	Productive   bool    `json:"is_productive"`
	Confidence   float64 `json:"confidence"`
	Rationale    string  `json:"reason"`
	LatencyMs    int     `json:"processing_time_ms"`
	ErrorMessage string  `json:"error,omitempty"`
}

// Classifier is a pluggable classification oracle.
type Classifier interface {
	Classify(ctx context.Context, text, contextInfo string) (Result, error)
}

// --- HTTP oracle ---

type httpOracle struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type classifyRequest struct {
	Content string `json:"content"`
	Context string `json:"context,omitempty"`
}

// NewHTTP creates a Classifier that POSTs content to an oracle endpoint.
func NewHTTP(endpoint, apiKey string, timeout time.Duration) Classifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpOracle{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (o *httpOracle) Classify(ctx context.Context, text, contextInfo string) (Result, error) {
	body, _ := json.Marshal(classifyRequest{
		Content: content.Prepare(text),
		Context: contextInfo,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("oracle error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("oracle %d: %s", resp.StatusCode, string(b))
	}

	var r Result
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Result{}, err
	}
	return r, nil
}

// --- Fallback wrapper ---

// Fallback resolves every classification to a verdict: through the oracle
// when one is configured and healthy, through the heuristic engine otherwise.
// It never returns an error; sustained oracle failure only degrades filtering
// quality.
type Fallback struct {
	oracle  Classifier // nil means heuristic-only
	engine  *classify.Engine
	timeout time.Duration
}

// NewFallback wraps an optional oracle over the heuristic engine. oracle may
// be nil.
func NewFallback(oracle Classifier, engine *classify.Engine, timeout time.Duration) *Fallback {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fallback{oracle: oracle, engine: engine, timeout: timeout}
}

// Classify produces a verdict for text, consulting the oracle first when
// available.
func (f *Fallback) Classify(ctx context.Context, text string, cctx *classify.Context) classify.Verdict {
	if f.oracle == nil {
		return f.engine.Classify(text, cctx)
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := f.oracle.Classify(callCtx, text, contextInfo(cctx))
	switch {
	case err != nil:
		// Timeout or transport failure: degrade to the heuristic verdict.
		v := f.engine.Classify(text, cctx)
		v.Rationale = classify.RationaleFallback
		return v
	case !res.Success:
		v := f.engine.Classify(text, cctx)
		v.Rationale = classify.RationaleOracleError
		return v
	}

	latency := res.LatencyMs
	if latency == 0 {
		latency = int(time.Since(start).Milliseconds())
	}
	conf := res.Confidence
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}
	return classify.Verdict{
		Productive: res.Productive,
		Confidence: conf,
		Rationale:  res.Rationale,
		LatencyMs:  latency,
	}
}

func contextInfo(cctx *classify.Context) string {
	if cctx == nil {
		return ""
	}
	return fmt.Sprintf("app=%s category=%s length=%d", cctx.SourceApp, cctx.Category, cctx.ContentLength)
}
