package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/earlyspark/scrollguard/internal/classify"
)

type stubOracle struct {
	result Result
	err    error
	calls  int
}

func (s *stubOracle) Classify(ctx context.Context, text, contextInfo string) (Result, error) {
	s.calls++
	return s.result, s.err
}

func TestFallbackWithoutOracleUsesHeuristics(t *testing.T) {
	f := NewFallback(nil, classify.NewEngine(), time.Second)
	v := f.Classify(context.Background(), "you won't believe this", nil)
	if v.Productive {
		t.Error("expected heuristic unproductive verdict")
	}
	if v.Rationale != classify.RationaleUnproductive {
		t.Errorf("heuristic rationale should pass through, got %s", v.Rationale)
	}
}

func TestFallbackOnTransportError(t *testing.T) {
	stub := &stubOracle{err: errors.New("connection refused")}
	f := NewFallback(stub, classify.NewEngine(), time.Second)

	v := f.Classify(context.Background(), "how to write tests", nil)
	if !v.Productive {
		t.Error("heuristic decision should survive oracle failure")
	}
	if v.Rationale != classify.RationaleFallback {
		t.Errorf("expected %s, got %s", classify.RationaleFallback, v.Rationale)
	}
}

func TestFallbackOnOracleReportedFailure(t *testing.T) {
	stub := &stubOracle{result: Result{Success: false, ErrorMessage: "model not loaded"}}
	f := NewFallback(stub, classify.NewEngine(), time.Second)

	v := f.Classify(context.Background(), "how to write tests", nil)
	if v.Rationale != classify.RationaleOracleError {
		t.Errorf("expected %s, got %s", classify.RationaleOracleError, v.Rationale)
	}
}

func TestFallbackUsesOracleVerdict(t *testing.T) {
	stub := &stubOracle{result: Result{
		Success:    true,
		Productive: false,
		Confidence: 0.85,
		Rationale:  "model_verdict",
		LatencyMs:  12,
	}}
	f := NewFallback(stub, classify.NewEngine(), time.Second)

	v := f.Classify(context.Background(), "how to write tests", nil)
	if v.Productive || v.Confidence != 0.85 || v.Rationale != "model_verdict" {
		t.Errorf("oracle verdict should pass through, got %+v", v)
	}
	if stub.calls != 1 {
		t.Errorf("expected 1 oracle call, got %d", stub.calls)
	}
}

func TestFallbackClampsOracleConfidence(t *testing.T) {
	stub := &stubOracle{result: Result{Success: true, Productive: true, Confidence: 1.7}}
	f := NewFallback(stub, classify.NewEngine(), time.Second)

	v := f.Classify(context.Background(), "anything", nil)
	if v.Confidence != 1.0 {
		t.Errorf("expected clamped confidence 1.0, got %.2f", v.Confidence)
	}
}

func TestHTTPOracleRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key123" {
			t.Errorf("missing auth header")
		}
		w.Write([]byte(`{"success":true,"is_productive":false,"confidence":0.9,"reason":"model_verdict","processing_time_ms":8}`))
	}))
	defer srv.Close()

	o := NewHTTP(srv.URL, "key123", time.Second)
	res, err := o.Classify(context.Background(), "viral stuff", "app=test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Productive || res.Confidence != 0.9 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestHTTPOracleNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o := NewHTTP(srv.URL, "", time.Second)
	if _, err := o.Classify(context.Background(), "text", ""); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestHTTPOracleTimeoutFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewFallback(NewHTTP(srv.URL, "", time.Second), classify.NewEngine(), 20*time.Millisecond)
	v := f.Classify(context.Background(), "tutorial on indexing", nil)
	if v.Rationale != classify.RationaleFallback {
		t.Errorf("timed-out call should degrade to heuristics, got %s", v.Rationale)
	}
}
