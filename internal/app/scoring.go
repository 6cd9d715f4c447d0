package app

import (
	"math"
	"strings"
)

const (
	pointsPerStroke   = 100
	bonusWindowSecs   = 60
	bonusPointsPerSec = 10
)

// BaseScore rewards guessing before the drawing finishes. ViewedStrokes may
// carry fractional progress through the stroke in flight at guess time, so
// the result is rounded, not truncated. The value is deliberately unclamped:
// if fractional accounting overshoots totalStrokes the base goes negative
// rather than being silently floored.
func BaseScore(totalStrokes int, viewedStrokes float64) int {
	return int(math.Round((float64(totalStrokes) - viewedStrokes) * pointsPerStroke))
}

// TimeBonus rewards answering within the bonus window; zero beyond it,
// never negative.
func TimeBonus(elapsedSeconds float64) int {
	bonus := (bonusWindowSecs - elapsedSeconds) * bonusPointsPerSec
	if bonus <= 0 {
		return 0
	}
	return int(math.Round(bonus))
}

// ComputeScore combines base and bonus for a correct guess. An incorrect
// guess always totals zero regardless of progress or time; the component
// values are still reported so the client can show what was at stake.
func ComputeScore(correct bool, totalStrokes int, viewedStrokes, elapsedSeconds float64) (total, base, bonus int) {
	base = BaseScore(totalStrokes, viewedStrokes)
	bonus = TimeBonus(elapsedSeconds)
	if !correct {
		return 0, base, bonus
	}
	return base + bonus, base, bonus
}

// EvaluateGuess reports whether a sanitized guess matches the stored answer,
// ignoring case and surrounding whitespace.
func EvaluateGuess(guess, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(answer))
}
