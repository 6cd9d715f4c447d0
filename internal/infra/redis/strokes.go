package redis

import (
	"encoding/json"
	"math"

	"sketch-guess-service/internal/domain"
)

// Compact wire form for stroke payloads: single-letter field names and
// coordinates rounded to one decimal, which is below the precision a finger
// or mouse produces on a 360-unit canvas.
type compressedPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type compressedStroke struct {
	P []compressedPoint `json:"p"`
	C string            `json:"c"`
	W float64           `json:"w"`
	T int64             `json:"t"`
}

func roundCoordinate(v float64) float64 {
	return math.Round(v*10) / 10
}

func compressStrokes(strokes []domain.Stroke) (string, error) {
	compressed := make([]compressedStroke, len(strokes))
	for i, stroke := range strokes {
		points := make([]compressedPoint, len(stroke.Points))
		for j, p := range stroke.Points {
			points[j] = compressedPoint{X: roundCoordinate(p.X), Y: roundCoordinate(p.Y)}
		}
		compressed[i] = compressedStroke{P: points, C: stroke.Color, W: stroke.Width, T: stroke.Timestamp}
	}
	data, err := json.Marshal(compressed)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decompressStrokes(payload string) ([]domain.Stroke, error) {
	var compressed []compressedStroke
	if err := json.Unmarshal([]byte(payload), &compressed); err != nil {
		return nil, err
	}
	strokes := make([]domain.Stroke, len(compressed))
	for i, cs := range compressed {
		points := make([]domain.Point, len(cs.P))
		for j, cp := range cs.P {
			points[j] = domain.Point{X: cp.X, Y: cp.Y}
		}
		strokes[i] = domain.Stroke{Points: points, Color: cs.C, Width: cs.W, Timestamp: cs.T}
	}
	return strokes, nil
}
