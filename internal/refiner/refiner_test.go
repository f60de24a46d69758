package refiner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scenealign/internal/matcher"
)

func alignment(scene int, start, end, confidence float64, alternates ...matcher.AlternativeMatch) matcher.Alignment {
	return matcher.Alignment{
		SceneNumber:        scene,
		SceneText:          "preview",
		MatchedSegmentID:   "single_0",
		VideoStartTime:     start,
		VideoEndTime:       end,
		Confidence:         confidence,
		AlternativeMatches: alternates,
	}
}

func TestRefiner_Refine(t *testing.T) {
	r := NewRefiner(0.3, 0.7)

	t.Run("should leave well-ordered alignments untouched", func(t *testing.T) {
		// Arrange
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.9),
			alignment(2, 12, 20, 0.85),
		}

		// Act
		refined := r.Refine(input)

		// Assert
		assert.Len(t, refined, 2)
		assert.False(t, refined[0].TemporalConflict)
		assert.False(t, refined[1].TemporalConflict)
		assert.Equal(t, 0.9, refined[0].Confidence)
		assert.Equal(t, 0.85, refined[1].Confidence)
	})

	t.Run("should penalize an unrepairable overlap by exactly thirty percent", func(t *testing.T) {
		// Arrange - scene 2 starts inside scene 1 with no usable alternate
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.9),
			alignment(2, 5, 15, 0.8, matcher.AlternativeMatch{
				SegmentID: "single_1", StartTime: 2, EndTime: 8, Confidence: 0.75,
			}),
		}

		// Act
		refined := r.Refine(input)

		// Assert
		assert.True(t, refined[1].TemporalConflict)
		assert.InDelta(t, 0.8*0.7, refined[1].Confidence, 1e-9)
	})

	t.Run("should repair an overlap from the first qualifying alternate", func(t *testing.T) {
		// Arrange
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.9),
			alignment(2, 5, 15, 0.8,
				matcher.AlternativeMatch{SegmentID: "single_1", StartTime: 2, EndTime: 8, Confidence: 0.6},
				matcher.AlternativeMatch{SegmentID: "single_2", StartTime: 11, EndTime: 18, Confidence: 0.75},
			),
		}

		// Act
		refined := r.Refine(input)

		// Assert
		assert.False(t, refined[1].TemporalConflict)
		assert.Equal(t, "single_2", refined[1].MatchedSegmentID)
		assert.Equal(t, 11.0, refined[1].VideoStartTime)
		assert.Equal(t, 18.0, refined[1].VideoEndTime)
		assert.Equal(t, 0.75, refined[1].Confidence)
	})

	t.Run("should flag final confidence below the threshold", func(t *testing.T) {
		// Arrange
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.65),
			alignment(2, 12, 20, 0.9),
		}

		// Act
		refined := r.Refine(input)

		// Assert
		assert.True(t, refined[0].ManualReviewRequired)
		assert.Equal(t, FlagReasonLowConfidence, refined[0].FlaggedReason)
		assert.False(t, refined[1].ManualReviewRequired)
		assert.Empty(t, refined[1].FlaggedReason)
	})

	t.Run("should not flag confidence exactly at the threshold", func(t *testing.T) {
		// Arrange - threshold comparison is a strict less-than
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.7),
			alignment(2, 12, 20, 0.7),
		}

		// Act
		refined := r.Refine(input)

		// Assert
		for _, a := range refined {
			assert.False(t, a.ManualReviewRequired)
		}
	})

	t.Run("should let a repaired scene recover out of manual review", func(t *testing.T) {
		// Arrange - post-penalty confidence would be 0.56, but the repair
		// adopts the alternate's 0.8
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.9),
			alignment(2, 5, 15, 0.8,
				matcher.AlternativeMatch{SegmentID: "single_2", StartTime: 10, EndTime: 18, Confidence: 0.8},
			),
		}

		// Act
		refined := r.Refine(input)

		// Assert
		assert.False(t, refined[1].TemporalConflict)
		assert.False(t, refined[1].ManualReviewRequired)
		assert.Equal(t, 0.8, refined[1].Confidence)
	})

	t.Run("should be a fixed point on its own output", func(t *testing.T) {
		// Arrange - one repairable and one unrepairable conflict
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.9),
			alignment(2, 5, 15, 0.8,
				matcher.AlternativeMatch{SegmentID: "single_2", StartTime: 11, EndTime: 18, Confidence: 0.75},
			),
			alignment(3, 2, 6, 0.9),
		}

		// Act
		once := r.Refine(input)
		twice := r.Refine(once)

		// Assert
		assert.Equal(t, once, twice)
	})

	t.Run("should sort input defensively by scene number", func(t *testing.T) {
		// Arrange
		input := []matcher.Alignment{
			alignment(2, 12, 20, 0.9),
			alignment(1, 0, 10, 0.9),
		}

		// Act
		refined := r.Refine(input)

		// Assert
		assert.Equal(t, 1, refined[0].SceneNumber)
		assert.Equal(t, 2, refined[1].SceneNumber)
		assert.False(t, refined[1].TemporalConflict)
	})

	t.Run("should not mutate its input", func(t *testing.T) {
		// Arrange
		input := []matcher.Alignment{
			alignment(1, 0, 10, 0.9),
			alignment(2, 5, 15, 0.8),
		}

		// Act
		_ = r.Refine(input)

		// Assert
		assert.False(t, input[1].TemporalConflict)
		assert.Equal(t, 0.8, input[1].Confidence)
	})

	t.Run("should handle empty input", func(t *testing.T) {
		// Act
		refined := r.Refine(nil)

		// Assert
		assert.Empty(t, refined)
	})
}
