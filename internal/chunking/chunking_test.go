package chunking_test

import (
	"testing"

	"reprint/internal/chunking"
)

func TestPlanEvenSplit(t *testing.T) {
	spans := chunking.Plan(180, 60)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	for i, span := range spans {
		if span.Index != i {
			t.Fatalf("span %d has index %d", i, span.Index)
		}
		if span.StartTime != float64(i)*60 || span.Duration != 60 {
			t.Fatalf("span %d = %+v", i, span)
		}
	}
}

func TestPlanRemainder(t *testing.T) {
	spans := chunking.Plan(130, 60)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	last := spans[2]
	if last.StartTime != 120 || last.Duration != 10 {
		t.Fatalf("unexpected final span %+v", last)
	}
}

func TestPlanShortVideo(t *testing.T) {
	spans := chunking.Plan(12.5, 60)
	if len(spans) != 1 {
		t.Fatalf("expected single span, got %d", len(spans))
	}
	if spans[0].Duration != 12.5 {
		t.Fatalf("unexpected duration %v", spans[0].Duration)
	}
}

func TestPlanEmpty(t *testing.T) {
	if spans := chunking.Plan(0, 60); spans != nil {
		t.Fatalf("expected nil for zero duration, got %v", spans)
	}
	if spans := chunking.Plan(60, 0); spans != nil {
		t.Fatalf("expected nil for zero chunk length, got %v", spans)
	}
}

func TestFrameBase(t *testing.T) {
	if base := chunking.FrameBase(0, 1); base != 0 {
		t.Fatalf("expected 0, got %d", base)
	}
	if base := chunking.FrameBase(60, 1); base != 60 {
		t.Fatalf("expected 60, got %d", base)
	}
	if base := chunking.FrameBase(90, 0.5); base != 45 {
		t.Fatalf("expected 45, got %d", base)
	}
	// Fractional products truncate downward.
	if base := chunking.FrameBase(10.7, 1); base != 10 {
		t.Fatalf("expected 10, got %d", base)
	}
}
