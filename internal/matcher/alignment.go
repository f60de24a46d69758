package matcher

import "fmt"

// Factors holds the individual signals blended into a scene's composite confidence
type Factors struct {
	SemanticSimilarity   float64 `json:"semantic_similarity"`
	LengthSimilarity     float64 `json:"length_similarity"`
	PositionSimilarity   float64 `json:"position_similarity"`
	TranscriptConfidence float64 `json:"transcript_confidence"`
}

// AlternativeMatch is a lower-ranked candidate preserved so the temporal
// refiner can repair ordering conflicts without re-matching
type AlternativeMatch struct {
	SegmentID  string  `json:"segment_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
}

// Alignment maps one script scene to a transcript time span. The matcher
// creates it; the temporal refiner may adjust times, confidence and review
// flags afterwards.
type Alignment struct {
	SceneNumber          int                `json:"scene_number"`
	SceneText            string             `json:"scene_text"`
	MatchedSegmentID     string             `json:"matched_segment_id"`
	VideoStartTime       float64            `json:"video_start_time"`
	VideoEndTime         float64            `json:"video_end_time"`
	Confidence           float64            `json:"confidence"`
	ConfidenceFactors    Factors            `json:"confidence_factors"`
	AlternativeMatches   []AlternativeMatch `json:"alternative_matches"`
	TemporalConflict     bool               `json:"temporal_conflict"`
	ManualReviewRequired bool               `json:"manual_review_required"`
	FlaggedReason        string             `json:"flagged_reason,omitempty"`
}

// Validate checks if the Alignment has valid values
func (a *Alignment) Validate() error {
	if a.SceneNumber < 1 {
		return fmt.Errorf("scene_number must be positive")
	}

	if a.MatchedSegmentID == "" {
		return fmt.Errorf("matched_segment_id cannot be empty")
	}

	if a.VideoEndTime < a.VideoStartTime {
		return fmt.Errorf("video_end_time must not precede video_start_time")
	}

	if a.Confidence < 0.0 || a.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0")
	}

	if len(a.AlternativeMatches) > 2 {
		return fmt.Errorf("at most two alternative matches are preserved")
	}

	return nil
}
