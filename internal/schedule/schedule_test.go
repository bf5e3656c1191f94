package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/earlyspark/scrollguard/internal/classify"
)

func task(fp, app string) Task {
	return Task{Fingerprint: fp, Text: fp, AppID: app, SubmittedAt: time.Now()}
}

func TestCeilingRespected(t *testing.T) {
	var inflight, peak int64
	fn := func(ctx context.Context, tk Task) classify.Verdict {
		cur := atomic.AddInt64(&inflight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inflight, -1)
		return classify.Verdict{Productive: true}
	}

	s := New(3, fn)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		s.Submit(task(string(rune('a'+i)), "app"), func(string, classify.Verdict) { wg.Done() })
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > 3 {
		t.Errorf("ceiling violated: %d concurrent invocations", got)
	}
}

func TestDispatchInSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	fn := func(ctx context.Context, tk Task) classify.Verdict {
		mu.Lock()
		order = append(order, tk.Fingerprint)
		mu.Unlock()
		return classify.Verdict{}
	}

	s := New(1, fn)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(3)
	for _, fp := range []string{"first", "second", "third"} {
		s.Submit(task(fp, "app"), func(string, classify.Verdict) { wg.Done() })
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "second", "third"}
	for i, fp := range want {
		if order[i] != fp {
			t.Fatalf("dispatch order %v, want %v", order, want)
		}
	}
}

func TestDuplicateFingerprintCoalesces(t *testing.T) {
	gate := make(chan struct{})
	var calls int64
	fn := func(ctx context.Context, tk Task) classify.Verdict {
		if tk.Fingerprint == "blocker" {
			<-gate
			return classify.Verdict{}
		}
		atomic.AddInt64(&calls, 1)
		return classify.Verdict{Productive: false, Confidence: 0.9}
	}

	s := New(1, fn)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	s.Submit(task("blocker", "app"), nil)

	var wg sync.WaitGroup
	wg.Add(2)
	results := make([]classify.Verdict, 2)
	for i := 0; i < 2; i++ {
		i := i
		s.Submit(task("dup", "app"), func(_ string, v classify.Verdict) {
			results[i] = v
			wg.Done()
		})
	}
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("expected exactly 1 invocation for duplicate fingerprint, got %d", got)
	}
	if results[0] != results[1] {
		t.Error("both callers should receive the same verdict")
	}
}

func TestDropQueuedSkipsClassification(t *testing.T) {
	gate := make(chan struct{})
	var calls int64
	fn := func(ctx context.Context, tk Task) classify.Verdict {
		if tk.Fingerprint == "blocker" {
			<-gate
			return classify.Verdict{}
		}
		atomic.AddInt64(&calls, 1)
		return classify.Verdict{}
	}

	s := New(1, fn)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	s.Submit(task("blocker", "appA"), nil)
	s.Submit(task("q1", "appA"), func(string, classify.Verdict) {
		t.Error("dropped task must not deliver a verdict")
	})
	s.Submit(task("q2", "appA"), func(string, classify.Verdict) {
		t.Error("dropped task must not deliver a verdict")
	})

	if dropped := s.DropQueued("appA"); dropped != 2 {
		t.Errorf("expected 2 dropped tasks, got %d", dropped)
	}
	close(gate)
	s.Stop()

	if got := atomic.LoadInt64(&calls); got != 0 {
		t.Errorf("dropped tasks invoked classification %d times", got)
	}
}

func TestDropQueuedKeepsOtherApps(t *testing.T) {
	gate := make(chan struct{})
	done := make(chan string, 2)
	fn := func(ctx context.Context, tk Task) classify.Verdict {
		if tk.Fingerprint == "blocker" {
			<-gate
		}
		return classify.Verdict{}
	}

	s := New(1, fn)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	s.Submit(task("blocker", "appA"), nil)
	s.Submit(task("stale", "appA"), nil)
	s.Submit(task("fresh", "appB"), func(fp string, _ classify.Verdict) { done <- fp })

	if dropped := s.DropQueued("appA"); dropped != 1 {
		t.Errorf("expected 1 dropped task, got %d", dropped)
	}
	close(gate)

	select {
	case fp := <-done:
		if fp != "fresh" {
			t.Errorf("expected fresh task to run, got %s", fp)
		}
	case <-time.After(time.Second):
		t.Fatal("task for surviving app never ran")
	}
}

func TestPanickingClassifierFreesSlot(t *testing.T) {
	fn := func(ctx context.Context, tk Task) classify.Verdict {
		if tk.Fingerprint == "boom" {
			panic("oracle exploded")
		}
		return classify.Verdict{Productive: false}
	}

	s := New(1, fn)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	var boomVerdict classify.Verdict
	s.Submit(task("boom", "app"), func(_ string, v classify.Verdict) {
		boomVerdict = v
		wg.Done()
	})
	s.Submit(task("next", "app"), func(string, classify.Verdict) { wg.Done() })
	wg.Wait()

	if !boomVerdict.Productive || boomVerdict.Rationale != classify.RationaleOracleError {
		t.Errorf("expected degraded default-safe verdict, got %+v", boomVerdict)
	}
}

func TestStartTwiceFails(t *testing.T) {
	s := New(1, func(context.Context, Task) classify.Verdict { return classify.Verdict{} })
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestStopIdempotent(t *testing.T) {
	s := New(1, func(context.Context, Task) classify.Verdict { return classify.Verdict{} })
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop()
}
