package refiner

import (
	"sort"

	"go.uber.org/zap"

	"scenealign/internal/matcher"
)

// FlagReasonLowConfidence is recorded on alignments whose final confidence
// falls below the review threshold
const FlagReasonLowConfidence = "low_confidence_alignment"

// Refiner walks matched scenes in scene order, penalizes and attempts to
// repair overlapping time assignments, and flags low-confidence scenes for
// manual review
type Refiner struct {
	overlapPenalty      float64
	confidenceThreshold float64
	logger              *zap.Logger
}

// NewRefiner creates a Refiner with the given overlap penalty fraction and
// manual-review confidence threshold
func NewRefiner(overlapPenalty, confidenceThreshold float64) *Refiner {
	return NewRefinerWithLogger(overlapPenalty, confidenceThreshold, zap.NewNop())
}

// NewRefinerWithLogger creates a Refiner with the given logger
func NewRefinerWithLogger(overlapPenalty, confidenceThreshold float64, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{
		overlapPenalty:      overlapPenalty,
		confidenceThreshold: confidenceThreshold,
		logger:              logger,
	}
}

// Refine returns a repaired copy of the alignments; the input is not mutated.
// Scenes whose assigned span starts before the previous scene's span ends are
// penalized and, when a non-overlapping alternate exists, repaired from the
// preserved alternates. Afterwards every alignment below the confidence
// threshold is flagged for manual review. Running Refine on its own output is
// a fixed point: already-flagged conflicts are not penalized twice.
func (r *Refiner) Refine(alignments []matcher.Alignment) []matcher.Alignment {
	refined := make([]matcher.Alignment, len(alignments))
	copy(refined, alignments)

	// Input is expected in scene order already; sorting is defensive
	sort.SliceStable(refined, func(a, b int) bool {
		return refined[a].SceneNumber < refined[b].SceneNumber
	})

	for i := 1; i < len(refined); i++ {
		current := &refined[i]
		previous := &refined[i-1]

		if current.VideoStartTime >= previous.VideoEndTime {
			continue
		}

		if !current.TemporalConflict {
			current.Confidence = clamp01(current.Confidence * (1 - r.overlapPenalty))
			current.TemporalConflict = true
		}

		r.logger.Debug("temporal conflict detected",
			zap.Int("scene", current.SceneNumber),
			zap.Float64("scene_start", current.VideoStartTime),
			zap.Float64("previous_end", previous.VideoEndTime))

		// Best-effort repair: first alternate that starts after the previous
		// scene's span wins; otherwise the conflict stands
		for _, alt := range current.AlternativeMatches {
			if alt.StartTime >= previous.VideoEndTime {
				current.VideoStartTime = alt.StartTime
				current.VideoEndTime = alt.EndTime
				current.MatchedSegmentID = alt.SegmentID
				current.Confidence = clamp01(alt.Confidence)
				current.TemporalConflict = false

				r.logger.Debug("temporal conflict repaired from alternate",
					zap.Int("scene", current.SceneNumber),
					zap.String("segment", alt.SegmentID))
				break
			}
		}
	}

	// Review flagging uses final post-repair confidence, so a repaired scene
	// can recover out of manual review
	for i := range refined {
		if refined[i].Confidence < r.confidenceThreshold {
			refined[i].ManualReviewRequired = true
			refined[i].FlaggedReason = FlagReasonLowConfidence
		} else {
			refined[i].ManualReviewRequired = false
			refined[i].FlaggedReason = ""
		}
	}

	return refined
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
