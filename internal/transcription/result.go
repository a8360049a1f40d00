package transcription

import (
	"unicode/utf8"

	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/vad"
)

// Status tags how a transcription ended
type Status string

const (
	StatusOK       Status = "ok"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Candidate is the output of one successful attempt
type Candidate struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Engine     string  `json:"engine"`
	Locale     string  `json:"locale"`
}

// SegmentOutcome reports how one long-audio window was transcribed
type SegmentOutcome struct {
	Index       int          `json:"index"`
	StartMs     int          `json:"start_ms"`
	EndMs       int          `json:"end_ms"`
	Text        string       `json:"text"`
	Inaudible   bool         `json:"inaudible"`
	Engine      string       `json:"engine,omitempty"`
	Locale      string       `json:"locale,omitempty"`
	Confidence  float64      `json:"confidence,omitempty"`
	Calibration *vad.Profile `json:"calibration,omitempty"`
}

// Result is the terminal output of a transcription. The pipeline fills EnhancedText,
// Format and Audio before handing it to callers; nothing modifies it afterwards.
type Result struct {
	Text             string            `json:"text"`
	Warnings         []string          `json:"warnings"`
	UsedSegmentation bool              `json:"used_segmentation"`
	Status           Status            `json:"status"`
	Engine           string            `json:"engine,omitempty"`
	Locale           string            `json:"locale,omitempty"`
	Confidence       float64           `json:"confidence,omitempty"`
	Segments         []SegmentOutcome  `json:"segments,omitempty"`
	EnhancedText     string            `json:"enhanced_text,omitempty"`
	Format           string            `json:"format,omitempty"`
	Audio            *audio.BufferInfo `json:"audio,omitempty"`
	Calibration      *vad.Profile      `json:"calibration,omitempty"`
}

// OK reports whether the result carries recognized text
func (r *Result) OK() bool {
	return r.Status == StatusOK
}

// Select picks the best candidate. A strictly higher confidence wins unless the two are
// within nearEqual of each other, in which case the longer transcript wins.
// Earlier candidates win exact ties. Select returns false for an empty slice.
func Select(candidates []Candidate, nearEqual float64) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		diff := c.Confidence - best.Confidence
		if diff < 0 {
			diff = -diff
		}
		if diff <= nearEqual+1e-9 {
			if utf8.RuneCountInString(c.Text) > utf8.RuneCountInString(best.Text) {
				best = c
			}
			continue
		}
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}
