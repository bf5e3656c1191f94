package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/earlyspark/scrollguard/internal/classify"
	"github.com/earlyspark/scrollguard/internal/config"
	"github.com/earlyspark/scrollguard/internal/content"
	"github.com/earlyspark/scrollguard/internal/feedsim"
	"github.com/earlyspark/scrollguard/internal/history"
	"github.com/earlyspark/scrollguard/internal/oracle"
	"github.com/earlyspark/scrollguard/internal/pipeline"
	"github.com/earlyspark/scrollguard/internal/tui"
)

// demoFeed keeps the tool usable offline: a browsing session with a mix of
// content the classifier should mask and pass.
var demoFeed = []string{
	"You won't believe what this CEO did next, number 7 will shock you",
	"How to design a rate limiter: a step by step tutorial with benchmarks",
	"Top 10 celebrity gossip moments that went viral this week",
	"Understanding database indexes: a deep dive guide for engineers",
	"This is amazing!!! Must watch before it gets deleted!!!",
	"Research paper review: consensus protocols explained",
	"Shocking drama unfolds as influencers feud over sponsorship deal",
	"Learn Go concurrency patterns: worker pools and pipelines explained",
	"Epic fail compilation, you will not stop laughing",
	"Course announcement: distributed systems lecture series now free",
	"Trending meme roundup, wait for it",
	"A study on cache eviction strategies and their analysis",
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	interval, err := time.ParseDuration(flagInterval)
	if err != nil {
		return fmt.Errorf("invalid --interval value: %w", err)
	}

	store, err := history.Open(config.HistoryPath())
	if err != nil {
		fmt.Printf("  [warn] history disabled: %v\n", err)
		store = nil
	} else {
		defer store.Close()
	}

	screen := feedsim.NewScreen(flagApp)
	if len(flagFeeds) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		for _, url := range flagFeeds {
			if err := screen.Load(ctx, url); err != nil {
				fmt.Printf("  [warn] %v\n", err)
			}
		}
		cancel()
		if screen.Len() == 0 {
			return fmt.Errorf("no feed entries loaded")
		}
	} else {
		screen.LoadTexts(demoFeed)
	}

	events := make(chan pipeline.Event, 256)
	p, err := pipeline.New(pipeline.Options{
		Config:   cfg,
		Source:   screen,
		Surface:  newMemSurface(),
		Classify: buildClassifier(cfg),
		History:  store,
		// Lossy on purpose: the monitor must never stall the pipeline.
		OnEvent: func(e pipeline.Event) {
			select {
			case events <- e:
			default:
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		return err
	}

	var stopOnce sync.Once
	stop := func() { stopOnce.Do(p.Stop) }
	defer stop()

	driver := &feedsim.Driver{Screen: screen, Interval: interval, Emit: p.OnSignal}
	go func() {
		driver.Run(ctx)
		stop()
		close(events)
	}()

	if flagHeadless {
		return runHeadless(p, events)
	}
	err = tui.Run(tui.RunOpts{Pipeline: p, Events: events})
	cancel()
	return err
}

func runHeadless(p *pipeline.Pipeline, events <-chan pipeline.Event) error {
	for e := range events {
		verdict := "pass"
		if e.Masked {
			verdict = "MASK"
		}
		cached := ""
		if e.CacheHit {
			cached = " (cached)"
		}
		fmt.Printf("%s %s conf=%.2f %s%s\n", verdict, e.ContentKey[:8], e.Confidence, e.Rationale, cached)
	}

	s := p.Snapshot()
	fmt.Printf("\n%d items, %d masked, %d cache hits, %d classified\n",
		s.ItemsSeen, s.Masked, s.CacheHits, s.Classified)
	return nil
}

// buildClassifier assembles the heuristic engine and, when configured, the
// oracle in front of it.
func buildClassifier(cfg *config.Config) pipeline.ClassifyFunc {
	engine := classify.NewEngine(cfg.EngineOptions()...)

	var oc oracle.Classifier
	if cfg.OracleEnabled() {
		oc = oracle.NewHTTP(cfg.Oracle.Endpoint, cfg.OracleKey(), cfg.ClassifyTimeoutDuration())
	}
	return oracle.NewFallback(oc, engine, cfg.ClassifyTimeoutDuration()).Classify
}

// memSurface is the rendering target for simulated sessions. Masks live in
// memory; the monitor and headless output report them.
type memSurface struct {
	mu    sync.Mutex
	masks map[string]content.Rect
}

func newMemSurface() *memSurface {
	return &memSurface{masks: make(map[string]content.Rect)}
}

func (s *memSurface) Render(id string, b content.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masks[id] = b
	return nil
}

func (s *memSurface) Move(id string, b content.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masks[id] = b
	return nil
}

func (s *memSurface) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.masks, id)
	return nil
}
