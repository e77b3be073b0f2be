// Package confidence assigns a score in [0,1] to every extracted field.
// The scorer is pure and stateless: the same signals always produce the
// same score, so any score is reproducible from logged inputs.
package confidence

// Band thresholds. High-band fields pass automatically, low-band fields
// are routed to human review.
const (
	HighThreshold   = 0.90
	MediumThreshold = 0.70
)

// Method tags the scorer understands. They mirror the extraction engine's
// method tags; anything else scores as unknown.
const (
	methodDirect        = "direct-label-match"
	methodSectionScoped = "section-scoped-match"
	methodBidirectional = "bidirectional-fallback"
	methodNotFound      = "not-found"
)

// Signals are the three inputs confidence is computed from: how the value
// was located, how tightly it matched the field's expected shape, and how
// many plausible candidates competed for it.
type Signals struct {
	Method string
	// Strict is true when the captured value satisfied the field's shape
	// before normalization corrections.
	Strict bool
	// Corrected is true when normalization changed the value beyond
	// whitespace trimming.
	Corrected bool
	// Candidates counts the label occurrences that yielded a plausible
	// value. Two or more means the engine had to disambiguate.
	Candidates int
}

// Base scores by extraction method
const (
	baseDirect        = 0.95
	baseSectionScoped = 0.85
	baseBidirectional = 0.78
	baseUnknown       = 0.50
)

// Penalties and caps
const (
	correctionPenalty = 0.08
	ambiguityCap      = 0.65
	ambiguityStep     = 0.05
	looseShapeCap     = 0.55
)

// Score maps extraction signals to a confidence score. Direct matches
// with an exact-shape value and a single candidate land in the high band;
// scoped or fallback matches and normalization-corrected values land in
// the medium band; ambiguous or loose-shape captures land in the low band.
func Score(s Signals) float64 {
	if s.Method == methodNotFound || s.Method == "" {
		return 0.0
	}

	var score float64
	switch s.Method {
	case methodDirect:
		score = baseDirect
	case methodSectionScoped:
		score = baseSectionScoped
	case methodBidirectional:
		score = baseBidirectional
	default:
		score = baseUnknown
	}

	if s.Corrected {
		score -= correctionPenalty
		if score < MediumThreshold {
			score = MediumThreshold
		}
	}

	if s.Candidates >= 2 {
		limit := ambiguityCap - ambiguityStep*float64(s.Candidates-2)
		if score > limit {
			score = limit
		}
	}

	if !s.Strict && score > looseShapeCap {
		score = looseShapeCap
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Band labels a score as high, medium, or low
func Band(score float64) string {
	switch {
	case score >= HighThreshold:
		return "high"
	case score >= MediumThreshold:
		return "medium"
	default:
		return "low"
	}
}
