// Package pipeline wires intake, deduplication, scheduling, classification
// and overlay lifecycle into the real-time filtering loop.
//
// Concurrency model: a single event goroutine owns the overlay manager and
// all per-app state. Scheduler workers touch only the dedup cache and the
// pending queue; their verdicts are marshalled onto the event goroutine
// before any mask is created or removed.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/earlyspark/scrollguard/internal/classify"
	"github.com/earlyspark/scrollguard/internal/config"
	"github.com/earlyspark/scrollguard/internal/content"
	"github.com/earlyspark/scrollguard/internal/debounce"
	"github.com/earlyspark/scrollguard/internal/dedup"
	"github.com/earlyspark/scrollguard/internal/history"
	"github.com/earlyspark/scrollguard/internal/overlay"
	"github.com/earlyspark/scrollguard/internal/schedule"
)

// Source is the UI observation collaborator: on demand it returns a snapshot
// of the text items currently on screen for an app.
type Source interface {
	Snapshot(ctx context.Context, appID string) ([]content.Item, error)
}

// ClassifyFunc resolves one text item to a verdict. It must always return a
// verdict; degraded results are verdicts, not errors.
type ClassifyFunc func(ctx context.Context, text string, cctx *classify.Context) classify.Verdict

// Event is the per-item filtered event exposed to collaborators. It carries
// no raw text.
type Event struct {
	ContentKey string
	AppID      string
	Productive bool
	Confidence float64
	Rationale  string
	CacheHit   bool
	Masked     bool
}

// Stats are live pipeline counters, safe to read from any goroutine.
type Stats struct {
	ItemsSeen   uint64
	CacheHits   uint64
	Classified  uint64
	Masked      uint64
	Discarded   uint64
	ExtractErrs uint64
}

// Options configures a Pipeline.
type Options struct {
	Config   *config.Config
	Source   Source
	Surface  overlay.Surface
	Classify ClassifyFunc
	History  *history.Store // optional verdict log
	OnEvent  func(Event)    // optional; called from the event goroutine
}

type msgKind int

const (
	msgChanged msgKind = iota
	msgScrolled
	msgSwitched
	msgVerdict
)

type msg struct {
	kind    msgKind
	appID   string
	key     string
	verdict classify.Verdict
	bounds  content.Rect
	handle  content.Handle
}

// Pipeline is the orchestrator.
type Pipeline struct {
	cfg      *config.Config
	source   Source
	classify ClassifyFunc
	cache    *dedup.Cache
	sched    *schedule.Scheduler
	overlay  *overlay.Manager
	deb      *debounce.Debouncer
	store    *history.Store
	onEvent  func(Event)

	msgs   chan msg
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	currentApp string // owned by the event goroutine

	appMu     sync.Mutex
	activeApp string // mirror for signal-path cancellation

	stats struct {
		itemsSeen   atomic.Uint64
		cacheHits   atomic.Uint64
		classified  atomic.Uint64
		masked      atomic.Uint64
		discarded   atomic.Uint64
		extractErrs atomic.Uint64
	}

	started bool
}

// New builds a pipeline from options. Config, Source, Surface and Classify
// are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Config == nil || opts.Source == nil || opts.Surface == nil || opts.Classify == nil {
		return nil, fmt.Errorf("pipeline: config, source, surface and classify are required")
	}

	p := &Pipeline{
		cfg:      opts.Config,
		source:   opts.Source,
		classify: opts.Classify,
		cache:    dedup.New(opts.Config.CacheSize()),
		overlay:  overlay.New(opts.Surface, opts.Config.MaskLifetimeDuration()),
		store:    opts.History,
		onEvent:  opts.OnEvent,
		msgs:     make(chan msg, 256),
	}

	p.sched = schedule.New(opts.Config.ConcurrencyCeiling(), func(ctx context.Context, task schedule.Task) classify.Verdict {
		cctx := task.Context
		return p.classify(ctx, task.Text, &cctx)
	})

	p.deb = debounce.New(opts.Config.DebounceDuration(), debounce.Handlers{
		OnChanged:  func(app string) { p.send(msg{kind: msgChanged, appID: app}) },
		OnScrolled: func(app string) { p.send(msg{kind: msgScrolled, appID: app}) },
		OnSwitched: p.onSwitched,
	})

	return p, nil
}

// Start launches the scheduler workers and the event goroutine.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.started {
		return fmt.Errorf("pipeline already started")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	if err := p.sched.Start(p.ctx); err != nil {
		return err
	}
	p.started = true
	p.wg.Add(1)
	go p.loop()
	return nil
}

// Stop tears the pipeline down: pending passes are cancelled, workers drain,
// and every active mask is removed.
func (p *Pipeline) Stop() {
	if !p.started {
		return
	}
	p.deb.Close()
	p.sched.Stop()
	p.cancel()
	p.wg.Wait()
}

// OnSignal is the raw intake from the UI observation source.
func (p *Pipeline) OnSignal(sig debounce.Signal) {
	if sig.Kind != debounce.WindowSwitched && !p.cfg.AppEnabled(sig.AppID) {
		return
	}
	p.deb.OnRawSignal(sig)
}

// Snapshot returns current counters.
func (p *Pipeline) Snapshot() Stats {
	return Stats{
		ItemsSeen:   p.stats.itemsSeen.Load(),
		CacheHits:   p.stats.cacheHits.Load(),
		Classified:  p.stats.classified.Load(),
		Masked:      p.stats.masked.Load(),
		Discarded:   p.stats.discarded.Load(),
		ExtractErrs: p.stats.extractErrs.Load(),
	}
}

// ActiveMasks reports how many masks are currently shown. Approximate when
// read off the event goroutine.
func (p *Pipeline) ActiveMasks() int {
	return p.overlay.Active()
}

// onSwitched runs on the signal path: queued tasks for the previous app are
// dropped before another worker slot can pick them up, then mask teardown is
// marshalled onto the event goroutine.
func (p *Pipeline) onSwitched(app string) {
	p.appMu.Lock()
	prev := p.activeApp
	p.activeApp = app
	p.appMu.Unlock()

	if prev != "" && prev != app {
		p.sched.DropQueued(prev)
	}
	p.send(msg{kind: msgSwitched, appID: app})
}

func (p *Pipeline) send(m msg) {
	if p.ctx == nil {
		return // not started
	}
	select {
	case p.msgs <- m:
	case <-p.ctx.Done():
	}
}

func (p *Pipeline) loop() {
	defer p.wg.Done()
	defer p.overlay.HideAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case m := <-p.msgs:
			switch m.kind {
			case msgChanged:
				p.handleChanged(m.appID)
			case msgScrolled:
				p.overlay.Sweep()
			case msgSwitched:
				p.currentApp = m.appID
				p.overlay.HideAll()
			case msgVerdict:
				p.applyVerdict(m, false)
			}
		}
	}
}

// handleChanged runs one processing pass: extract, dedup-check, queue misses.
func (p *Pipeline) handleChanged(app string) {
	if p.currentApp == "" {
		p.currentApp = app
		p.appMu.Lock()
		if p.activeApp == "" {
			p.activeApp = app
		}
		p.appMu.Unlock()
	}

	items, err := p.source.Snapshot(p.ctx, app)
	if err != nil {
		// Extraction failure: skip the pass, nothing is cached.
		p.stats.extractErrs.Add(1)
		return
	}

	p.overlay.Sweep()

	for _, item := range items {
		text := content.Prepare(item.Text)
		fp := content.Fingerprint(text)
		if fp == "" {
			continue
		}
		p.stats.itemsSeen.Add(1)

		cctx := classify.Context{
			SourceApp:     app,
			ContentLength: len([]rune(text)),
			Category:      classify.DetectCategory(text),
		}

		if v, ok := p.cache.Lookup(fp); ok {
			p.stats.cacheHits.Add(1)
			p.applyVerdict(msg{
				appID:   app,
				key:     fp,
				verdict: v,
				bounds:  item.Bounds,
				handle:  item.Handle,
			}, true)
			continue
		}

		bounds, handle := item.Bounds, item.Handle
		p.sched.Submit(schedule.Task{
			Fingerprint: fp,
			Text:        text,
			Context:     cctx,
			AppID:       app,
			SubmittedAt: time.Now(),
		}, func(key string, v classify.Verdict) {
			p.send(msg{
				kind:    msgVerdict,
				appID:   app,
				key:     key,
				verdict: v,
				bounds:  bounds,
				handle:  handle,
			})
		})
	}
}

// applyVerdict masks or passes one item. Runs on the event goroutine only.
func (p *Pipeline) applyVerdict(m msg, cacheHit bool) {
	if m.appID != p.currentApp {
		// The foreground app changed while this task was in flight.
		p.stats.discarded.Add(1)
		return
	}

	if !cacheHit {
		p.stats.classified.Add(1)
		p.cache.Store(m.key, m.verdict)
		if p.store != nil {
			// Best-effort: a lost history row never stops the pipeline.
			p.store.Append(history.Record{
				Fingerprint: m.key,
				AppID:       m.appID,
				Productive:  m.verdict.Productive,
				Confidence:  m.verdict.Confidence,
				Rationale:   m.verdict.Rationale,
				LatencyMs:   m.verdict.LatencyMs,
			})
		}
	}

	masked := false
	if !m.verdict.Productive {
		masked = p.overlay.Show(m.key, m.bounds, m.verdict.Rationale, m.handle)
		if masked {
			p.stats.masked.Add(1)
		}
	}

	if p.onEvent != nil {
		p.onEvent(Event{
			ContentKey: m.key,
			AppID:      m.appID,
			Productive: m.verdict.Productive,
			Confidence: m.verdict.Confidence,
			Rationale:  m.verdict.Rationale,
			CacheHit:   cacheHit,
			Masked:     masked,
		})
	}
}
