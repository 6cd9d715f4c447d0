package app

import (
	"fmt"
	"regexp"
	"strings"

	"sketch-guess-service/internal/domain"
)

const (
	minStrokes      = 1
	maxStrokes      = 1000
	minCoordinate   = 0
	maxCoordinate   = 360
	minAnswerLength = 1
	maxAnswerLength = 50
	maxHintLength   = 100
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeText trims whitespace and strips markup tags from user-supplied
// text before it reaches storage or comparison.
func SanitizeText(text string) string {
	return tagPattern.ReplaceAllString(strings.TrimSpace(text), "")
}

// ValidateDrawing checks a drawing submission against the canvas and content
// limits. It returns every violation it finds so the client can report them
// all at once.
func ValidateDrawing(d domain.Drawing) []string {
	var errs []string

	if len(d.Strokes) < minStrokes {
		errs = append(errs, fmt.Sprintf("drawing must have at least %d stroke", minStrokes))
	}
	if len(d.Strokes) > maxStrokes {
		errs = append(errs, fmt.Sprintf("drawing cannot exceed %d strokes", maxStrokes))
	}

	for i, stroke := range d.Strokes {
		if msg := validateStroke(stroke); msg != "" {
			errs = append(errs, fmt.Sprintf("stroke %d: %s", i, msg))
		}
	}

	answer := strings.TrimSpace(d.Answer)
	if len(answer) < minAnswerLength {
		errs = append(errs, fmt.Sprintf("answer must be at least %d character", minAnswerLength))
	}
	if len(answer) > maxAnswerLength {
		errs = append(errs, fmt.Sprintf("answer cannot exceed %d characters", maxAnswerLength))
	}
	if hint := strings.TrimSpace(d.Hint); len(hint) > maxHintLength {
		errs = append(errs, fmt.Sprintf("hint cannot exceed %d characters", maxHintLength))
	}

	return errs
}

func validateStroke(s domain.Stroke) string {
	if len(s.Points) == 0 {
		return "stroke must contain at least one point"
	}
	for i, p := range s.Points {
		if p.X < minCoordinate || p.X > maxCoordinate || p.Y < minCoordinate || p.Y > maxCoordinate {
			return fmt.Sprintf("point %d: coordinates must be between %d and %d", i, minCoordinate, maxCoordinate)
		}
	}
	if s.Color == "" {
		return "stroke must have a color"
	}
	if s.Width <= 0 {
		return "stroke must have a positive width"
	}
	if s.Timestamp < 0 {
		return "stroke must have a non-negative timestamp"
	}
	return ""
}
