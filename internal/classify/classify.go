package classify

import (
	"strings"
	"time"
	"unicode"
)

// Verdict is the immutable output of one classification.
type Verdict struct {
	Productive bool
	Confidence float64
	Rationale  string
	LatencyMs  int
}

// Context carries per-item hints that adjust confidence. It is built per
// item and consumed once.
type Context struct {
	SourceApp     string
	ContentLength int
	Category      Category
}

// Rationale tags attached to verdicts.
const (
	RationaleEducational  = "educational_keywords"
	RationaleUnproductive = "unproductive_keywords"
	RationaleMixed        = "mixed_content"
	RationaleNeutral      = "neutral_content"
	RationaleCaps         = "excessive_caps"
	RationalePunctuation  = "excessive_punctuation"
	RationaleFallback     = "fallback_heuristic"
	RationaleOracleError  = "oracle_error"
)

// Pattern is one weighted phrase in a scoring table.
type Pattern struct {
	Phrase string
	Weight float64
}

// DefaultUnproductivePatterns are the reference red-flag phrases. Weights
// are tunable via config, not contract.
func DefaultUnproductivePatterns() []Pattern {
	return []Pattern{
		{"you won't believe", 0.9},
		{"shocking", 0.8},
		{"viral", 0.7},
		{"trending", 0.7},
		{"clickbait", 0.9},
		{"drama", 0.7},
		{"gossip", 0.8},
		{"must see", 0.7},
		{"watch this", 0.6},
		{"epic fail", 0.8},
		{"omg", 0.6},
		{"wtf", 0.7},
		{"insane", 0.7},
		{"crazy", 0.6},
	}
}

// DefaultProductivePatterns are the reference green-flag phrases.
func DefaultProductivePatterns() []Pattern {
	return []Pattern{
		{"how to", 0.9},
		{"tutorial", 0.9},
		{"learn", 0.8},
		{"education", 0.9},
		{"guide", 0.8},
		{"research", 0.9},
		{"analysis", 0.8},
		{"study", 0.8},
		{"insight", 0.8},
		{"explanation", 0.8},
		{"understand", 0.7},
		{"science", 0.8},
		{"technology", 0.7},
		{"knowledge", 0.8},
	}
}

// Engine scores text against weighted phrase tables. It holds only static
// tables and is safe for concurrent use from any worker.
type Engine struct {
	unproductive     []Pattern
	productive       []Pattern
	professionalApps []string
	shortVideoApps   []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPatterns replaces both pattern tables. Nil slices keep the defaults.
func WithPatterns(unproductive, productive []Pattern) Option {
	return func(e *Engine) {
		if unproductive != nil {
			e.unproductive = unproductive
		}
		if productive != nil {
			e.productive = productive
		}
	}
}

// WithAppCategories sets the app-id substrings treated as professional-network
// and short-video sources during context adjustment.
func WithAppCategories(professional, shortVideo []string) Option {
	return func(e *Engine) {
		e.professionalApps = professional
		e.shortVideoApps = shortVideo
	}
}

// NewEngine builds an engine with the reference tables unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		unproductive:     DefaultUnproductivePatterns(),
		productive:       DefaultProductivePatterns(),
		professionalApps: []string{"linkedin"},
		shortVideoApps:   []string{"tiktok", "shorts"},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify produces a verdict for non-empty text. ctx may be nil, in which
// case only the base heuristics apply. Deterministic for identical input.
func (e *Engine) Classify(text string, ctx *Context) Verdict {
	start := time.Now()

	lower := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	// Max weight per table, not a sum: repeated cheap keywords must not
	// inflate confidence.
	var maxUnproductive, maxProductive float64
	for _, p := range e.unproductive {
		if strings.Contains(lower, p.Phrase) && p.Weight > maxUnproductive {
			maxUnproductive = p.Weight
		}
	}
	for _, p := range e.productive {
		if strings.Contains(lower, p.Phrase) && p.Weight > maxProductive {
			maxProductive = p.Weight
		}
	}

	v := Verdict{Productive: true, Confidence: 0.6, Rationale: RationaleNeutral}
	switch {
	case maxProductive > maxUnproductive:
		v = Verdict{Productive: true, Confidence: maxProductive, Rationale: RationaleEducational}
	case maxUnproductive > maxProductive:
		v = Verdict{Productive: false, Confidence: maxUnproductive, Rationale: RationaleUnproductive}
	case maxUnproductive > 0:
		// Equal and nonzero: lean productive to minimize false positives.
		v = Verdict{Productive: true, Confidence: 0.5, Rationale: RationaleMixed}
	}

	// Red-flag overrides flip productive to unproductive, never the reverse.
	var caps, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				caps++
			}
		}
	}
	if letters > 0 && float64(caps)/float64(letters) > 0.5 {
		v.Productive = false
		v.Confidence = maxF(v.Confidence, 0.7)
		v.Rationale = RationaleCaps
	}

	if strings.Count(text, "!") > 3 || strings.Count(text, "?") > 3 {
		v.Productive = false
		v.Confidence = maxF(v.Confidence, 0.6)
		v.Rationale = RationalePunctuation
	}

	if ctx != nil {
		v = e.adjust(v, ctx)
	}

	v.LatencyMs = int(time.Since(start).Milliseconds())
	return v
}

// adjust nudges confidence from context hints. The decision never flips
// here; only confidence moves, clamped to [0,1] after every step.
func (e *Engine) adjust(v Verdict, ctx *Context) Verdict {
	app := strings.ToLower(ctx.SourceApp)
	if v.Productive && containsAny(app, e.professionalApps) {
		v.Confidence = clamp(v.Confidence + 0.2)
	}
	if !v.Productive && containsAny(app, e.shortVideoApps) {
		v.Confidence = clamp(v.Confidence + 0.1)
	}

	switch ctx.Category {
	case Educational:
		if v.Productive {
			v.Confidence = clamp(v.Confidence + 0.15)
		}
	case Entertainment, Commercial:
		if !v.Productive {
			v.Confidence = clamp(v.Confidence + 0.1)
		}
	}

	switch {
	case ctx.ContentLength < 50:
		// Short text is a weak signal.
		v.Confidence = clamp(v.Confidence * 0.8)
	case ctx.ContentLength > 500:
		if v.Productive {
			v.Confidence = clamp(v.Confidence + 0.1)
		}
	}
	return v
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
