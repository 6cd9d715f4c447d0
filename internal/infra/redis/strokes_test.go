package redis

import (
	"strings"
	"testing"

	"sketch-guess-service/internal/domain"
)

func TestStrokeCodecRoundTrip(t *testing.T) {
	strokes := []domain.Stroke{
		{
			Points:    []domain.Point{{X: 10.1234, Y: 99.96}, {X: 0, Y: 360}},
			Color:     "#1a2b3c",
			Width:     4.5,
			Timestamp: 1200,
		},
	}

	payload, err := compressStrokes(strokes)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	// compact field names keep the payload small
	if !strings.Contains(payload, `"p"`) || strings.Contains(payload, `"points"`) {
		t.Fatalf("expected compact encoding, got %s", payload)
	}

	got, err := decompressStrokes(payload)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if len(got) != 1 || got[0].Color != "#1a2b3c" || got[0].Width != 4.5 || got[0].Timestamp != 1200 {
		t.Fatalf("stroke attributes lost: %+v", got)
	}
	if got[0].Points[0].X != 10.1 {
		t.Fatalf("expected X rounded to 10.1, got %v", got[0].Points[0].X)
	}
	if got[0].Points[0].Y != 100 {
		t.Fatalf("expected Y rounded to 100, got %v", got[0].Points[0].Y)
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := decompressStrokes("not json"); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
