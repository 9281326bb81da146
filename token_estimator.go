package genstudio

import (
	"math"
	"unicode/utf8"
)

// TokenEstimator estimates how many provider tokens a text will consume.
// The Manager charges the estimate against a model's token budget.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// SimpleTokenEstimator approximates four characters per token with a margin.
type SimpleTokenEstimator struct {
	SafetyMargin float64
}

func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{
		SafetyMargin: 1.2,
	}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	estimate := float64(utf8.RuneCountInString(text)) / 4.0 * e.SafetyMargin

	return int(math.Ceil(estimate)) + 3
}
