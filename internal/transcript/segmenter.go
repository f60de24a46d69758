package transcript

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoTranscriptData indicates that neither sentence segments nor word-level
// timestamps are available in the transcript payload
var ErrNoTranscriptData = errors.New("no transcript segments or words available")

// Segmenter converts a flat transcript into the overlapping candidate pool of
// single and sliding-window segments used for matching
type Segmenter struct {
	windowSize      int
	segmentDuration float64
	logger          *zap.Logger
}

// NewSegmenter creates a transcript Segmenter with the given window size and
// target duration in seconds for word-synthesized segments
func NewSegmenter(windowSize int, segmentDuration float64) *Segmenter {
	return NewSegmenterWithLogger(windowSize, segmentDuration, zap.NewNop())
}

// NewSegmenterWithLogger creates a transcript Segmenter with the given logger
func NewSegmenterWithLogger(windowSize int, segmentDuration float64, logger *zap.Logger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if windowSize < 1 {
		windowSize = 1
	}
	return &Segmenter{
		windowSize:      windowSize,
		segmentDuration: segmentDuration,
		logger:          logger,
	}
}

// Segment builds the candidate segment pool from a transcript payload. For
// every base segment index i a "single" entry is emitted; when windowSize
// consecutive base segments exist starting at i, an additional "window" entry
// spans them with concatenated text and mean confidence. Fails with
// ErrNoTranscriptData when the payload is empty.
func (sg *Segmenter) Segment(payload *Payload) ([]Segment, error) {
	if payload == nil || payload.IsEmpty() {
		return nil, ErrNoTranscriptData
	}

	base := payload.Segments
	if len(base) == 0 {
		base = sg.segmentsFromWords(payload.Words)
	}

	pool := make([]Segment, 0, 2*len(base))
	for i, seg := range base {
		pool = append(pool, Segment{
			SegmentID:  fmt.Sprintf("single_%d", i),
			StartTime:  seg.Start,
			EndTime:    seg.End,
			Text:       strings.TrimSpace(seg.Text),
			Confidence: seg.Confidence,
			WindowType: WindowTypeSingle,
		})

		if i+sg.windowSize <= len(base) {
			window := base[i : i+sg.windowSize]
			texts := make([]string, len(window))
			confidenceSum := 0.0
			for j, w := range window {
				texts[j] = strings.TrimSpace(w.Text)
				confidenceSum += w.Confidence
			}

			pool = append(pool, Segment{
				SegmentID:  fmt.Sprintf("window_%d_%d", i, i+sg.windowSize-1),
				StartTime:  window[0].Start,
				EndTime:    window[len(window)-1].End,
				Text:       strings.Join(texts, " "),
				Confidence: confidenceSum / float64(len(window)),
				WindowType: WindowTypeWindow,
			})
		}
	}

	sg.logger.Debug("transcript segmented",
		zap.Int("base_segments", len(base)),
		zap.Int("candidates", len(pool)))

	return pool, nil
}

// segmentsFromWords greedily groups consecutive words until the accumulated
// duration reaches the target segment duration or the word list ends
func (sg *Segmenter) segmentsFromWords(words []RawWord) []RawSegment {
	var segments []RawSegment
	var group []RawWord
	groupStart := 0.0

	for i, word := range words {
		if len(group) == 0 {
			groupStart = word.Start
		}
		group = append(group, word)

		if word.End-groupStart >= sg.segmentDuration || i == len(words)-1 {
			texts := make([]string, len(group))
			confidenceSum := 0.0
			for j, w := range group {
				texts[j] = w.Word
				confidenceSum += w.Confidence
			}

			segments = append(segments, RawSegment{
				Start:      groupStart,
				End:        word.End,
				Text:       strings.Join(texts, " "),
				Confidence: confidenceSum / float64(len(group)),
			})
			group = nil
		}
	}

	return segments
}
