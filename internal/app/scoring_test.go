package app

import "testing"

func TestBaseScore(t *testing.T) {
	cases := []struct {
		name          string
		totalStrokes  int
		viewedStrokes float64
		want          int
	}{
		{"guessed early", 10, 3, 700},
		{"fractional progress", 10, 3.5, 650},
		{"full reveal", 10, 10, 0},
		{"no strokes viewed", 10, 0, 1000},
		// fractional in-progress accounting can nudge past the total;
		// the base stays unclamped rather than flooring at zero
		{"overshoot stays unclamped", 10, 10.2, -20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BaseScore(tc.totalStrokes, tc.viewedStrokes); got != tc.want {
				t.Fatalf("BaseScore(%d, %v) = %d, want %d", tc.totalStrokes, tc.viewedStrokes, got, tc.want)
			}
		})
	}
}

func TestTimeBonus(t *testing.T) {
	cases := []struct {
		name    string
		elapsed float64
		want    int
	}{
		{"fast answer", 30, 300},
		{"at the window edge", 60, 0},
		{"beyond the window never negative", 70, 0},
		{"instant", 0, 600},
		{"fractional seconds", 45.5, 145},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TimeBonus(tc.elapsed); got != tc.want {
				t.Fatalf("TimeBonus(%v) = %d, want %d", tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestComputeScoreIncorrectGuessIsZero(t *testing.T) {
	total, base, bonus := ComputeScore(false, 10, 3, 30)
	if total != 0 {
		t.Fatalf("incorrect guess scored %d, want 0", total)
	}
	// components are still reported so the client can show what was at stake
	if base != 700 || bonus != 300 {
		t.Fatalf("expected components 700/300, got %d/%d", base, bonus)
	}
}

func TestComputeScoreCorrectGuess(t *testing.T) {
	total, base, bonus := ComputeScore(true, 10, 3, 30)
	if total != 1000 || base != 700 || bonus != 300 {
		t.Fatalf("got total=%d base=%d bonus=%d, want 1000/700/300", total, base, bonus)
	}
}

func TestEvaluateGuess(t *testing.T) {
	if !EvaluateGuess("  Cat ", "cat") {
		t.Fatalf("expected case-insensitive trimmed match")
	}
	if EvaluateGuess("dog", "cat") {
		t.Fatalf("expected mismatch")
	}
	if !EvaluateGuess("CAT", " cat ") {
		t.Fatalf("expected stored answer to be trimmed too")
	}
}
