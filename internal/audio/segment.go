package audio

import (
	"fmt"
)

// Segment is one transcription window of a parent buffer
type Segment struct {
	Index   int     `json:"index"`
	StartMs int     `json:"start_ms"`
	EndMs   int     `json:"end_ms"`
	Buffer  *Buffer `json:"-"`
}

// Plan splits a buffer into windows of lengthMs that advance by lengthMs-overlapMs.
// The last window is clamped to the buffer's duration, and planning stops after the
// window that reaches the end. Stepping on until start >= duration would add trailing
// windows that lie wholly inside the previous overlap and only repeat its words; those
// are not emitted. Overlapping audio is transcribed twice; callers do not de-duplicate it.
func Plan(b *Buffer, lengthMs, overlapMs int) ([]Segment, error) {
	if lengthMs <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d ms", lengthMs)
	}
	if overlapMs < 0 {
		return nil, fmt.Errorf("overlap cannot be negative, got %d ms", overlapMs)
	}
	if lengthMs <= overlapMs {
		return nil, fmt.Errorf("segment length (%d ms) must be greater than overlap (%d ms)", lengthMs, overlapMs)
	}

	total := b.DurationMs()
	step := lengthMs - overlapMs
	segments := make([]Segment, 0, total/step+1)

	for start := 0; start < total; start += step {
		end := start + lengthMs
		if end > total {
			end = total
		}

		segments = append(segments, Segment{
			Index:   len(segments),
			StartMs: start,
			EndMs:   end,
			Buffer:  b.Slice(start, end),
		})

		if end >= total {
			break
		}
	}

	return segments, nil
}
