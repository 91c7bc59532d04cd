package sentiment

// Keyword lexicon for rule-based scoring of financial text. Matching is on
// lowercased word tokens, so "up" matches "up" but not "upgrade".
var (
	positiveKeywords = map[string]struct{}{
		"surge": {}, "rally": {}, "gain": {}, "up": {}, "rise": {},
		"bull": {}, "strong": {}, "outperform": {}, "beat": {},
		"growth": {}, "profit": {}, "earnings": {}, "success": {},
		"positive": {}, "good": {}, "excellent": {}, "outstanding": {},
		"record": {}, "high": {}, "boost": {}, "jump": {},
	}

	negativeKeywords = map[string]struct{}{
		"plunge": {}, "crash": {}, "fall": {}, "down": {}, "bear": {},
		"weak": {}, "underperform": {}, "miss": {}, "loss": {},
		"decline": {}, "negative": {}, "bad": {}, "poor": {},
		"worst": {}, "low": {}, "drop": {}, "tumble": {}, "slump": {},
		"sell-off": {}, "concern": {}, "risk": {},
	}
)
