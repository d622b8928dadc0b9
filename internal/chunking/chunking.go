// Package chunking plans how a video is split into fixed-length spans and
// maps chunk-local frame numbers onto the whole video's frame axis.
package chunking

import "math"

// Span is one planned chunk of a video.
type Span struct {
	Index     int
	StartTime float64
	Duration  float64
}

// Plan splits a video of the given duration into consecutive spans of at
// most chunkSeconds each. The final span absorbs the remainder. A
// non-positive duration yields no spans.
func Plan(totalDuration, chunkSeconds float64) []Span {
	if totalDuration <= 0 || chunkSeconds <= 0 {
		return nil
	}

	count := int(math.Ceil(totalDuration / chunkSeconds))
	spans := make([]Span, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunkSeconds
		length := chunkSeconds
		if start+length > totalDuration {
			length = totalDuration - start
		}
		spans = append(spans, Span{Index: i, StartTime: start, Duration: length})
	}
	return spans
}

// FrameBase returns the global index of a chunk's first sampled frame, so a
// chunk-local frame i maps to FrameBase(start, fps) + i.
func FrameBase(startTime, fps float64) int {
	return int(math.Floor(startTime * fps))
}
