// Package sentiment provides deterministic lexicon-based sentiment scoring
// for financial text.
package sentiment

import (
	"strings"
	"unicode"
)

// Label classifies the sentiment of a text or a set of texts.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// classificationThreshold separates positive/negative from neutral on the
// scalar score.
const classificationThreshold = 0.1

// Result holds the sentiment classification of a piece of text, with the
// scalar score in [-1, 1].
type Result struct {
	Label         Label   `json:"label"`
	Score         float64 `json:"score"`
	PositiveWords int     `json:"positive_words"`
	NegativeWords int     `json:"negative_words"`
}

// ScoreText classifies a text by counting lexicon keywords among its word
// tokens. Deterministic for identical input; empty or non-financial text
// scores neutral with 0, never an error.
func ScoreText(text string) Result {
	var positive, negative int
	for _, token := range tokenize(text) {
		if _, ok := positiveKeywords[token]; ok {
			positive++
			continue
		}
		if _, ok := negativeKeywords[token]; ok {
			negative++
		}
	}

	total := positive + negative
	var score float64
	if total > 0 {
		score = float64(positive-negative) / float64(total)
	}

	return Result{
		Label:         classify(score),
		Score:         score,
		PositiveWords: positive,
		NegativeWords: negative,
	}
}

// Aggregate combines individual results into an overall sentiment as the
// uniform mean of their scores. An empty input is neutral with score 0.
func Aggregate(results []Result) Result {
	if len(results) == 0 {
		return Result{Label: Neutral, Score: 0}
	}

	var sum float64
	var positive, negative int
	for _, r := range results {
		sum += r.Score
		positive += r.PositiveWords
		negative += r.NegativeWords
	}
	mean := sum / float64(len(results))

	return Result{
		Label:         classify(mean),
		Score:         mean,
		PositiveWords: positive,
		NegativeWords: negative,
	}
}

func classify(score float64) Label {
	switch {
	case score > classificationThreshold:
		return Positive
	case score < -classificationThreshold:
		return Negative
	default:
		return Neutral
	}
}

// tokenize lowercases and splits on anything that is not a letter, digit,
// or intra-word hyphen, so lexicon entries like "sell-off" still match.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}
