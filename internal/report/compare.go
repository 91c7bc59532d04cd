package report

import (
	"fmt"
	"sort"
	"time"
)

// ComparisonReport ranks a set of reports by recommendation strength.
type ComparisonReport struct {
	Reports     []*Report `json:"reports"` // strongest first
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Compare ranks reports by confidence-weighted recommendation strength
// (BUY positive, SELL negative, HOLD zero). Ties break by symbol in lexical
// order so the result is deterministic.
func (s *Synthesizer) Compare(reports []*Report, generatedAt time.Time) *ComparisonReport {
	ranked := make([]*Report, len(reports))
	copy(ranked, reports)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := strength(ranked[i]), strength(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	return &ComparisonReport{
		Reports:     ranked,
		Summary:     comparisonSummary(ranked),
		GeneratedAt: generatedAt,
	}
}

// strength maps a report to a signed score in [-1, 1].
func strength(r *Report) float64 {
	switch r.Recommendation {
	case Buy:
		return r.Confidence
	case Sell:
		return -r.Confidence
	default:
		return 0
	}
}

func comparisonSummary(ranked []*Report) string {
	if len(ranked) == 0 {
		return "no symbols to compare"
	}
	top := ranked[0]
	return fmt.Sprintf("%s ranks first with %s (confidence %.2f) across %d symbols",
		top.Symbol, top.Recommendation, top.Confidence, len(ranked))
}
