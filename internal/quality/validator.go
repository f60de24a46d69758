package quality

import (
	"fmt"

	"go.uber.org/zap"

	"scenealign/internal/matcher"
)

// Confidence bucket boundaries: high is strictly above 0.8, low strictly
// below 0.5, medium inclusive on both ends
const (
	highConfidenceBound = 0.8
	lowConfidenceBound  = 0.5
)

// Weights blends the quality factors into the overall quality score
type Weights struct {
	AverageConfidence   float64
	HighConfidenceRatio float64
	TemporalConsistency float64
}

// DefaultWeights returns the standard quality-score weighting
func DefaultWeights() Weights {
	return Weights{AverageConfidence: 0.5, HighConfidenceRatio: 0.3, TemporalConsistency: 0.2}
}

// Factors holds the aggregate signals behind the quality score
type Factors struct {
	AverageConfidence   float64 `json:"average_confidence"`
	HighConfidenceRatio float64 `json:"high_confidence_ratio"`
	TemporalConsistency float64 `json:"temporal_consistency"`
}

// SceneStatistics buckets the scenes by confidence and counts conflicts
type SceneStatistics struct {
	TotalScenes       int `json:"total_scenes"`
	HighConfidence    int `json:"high_confidence"`
	MediumConfidence  int `json:"medium_confidence"`
	LowConfidence     int `json:"low_confidence"`
	TemporalConflicts int `json:"temporal_conflicts"`
}

// Report summarizes a refined alignment and drives the manual-review decision
type Report struct {
	QualityScore      float64         `json:"quality_score"`
	QualityFactors    Factors         `json:"quality_factors"`
	SceneStatistics   SceneStatistics `json:"scene_statistics"`
	NeedsManualReview bool            `json:"needs_manual_review"`
	Recommendations   []string        `json:"recommendations"`
}

// Validator aggregates refined alignments into a quality report
type Validator struct {
	weights Weights
	logger  *zap.Logger
}

// NewValidator creates a Validator with the given quality-score weights
func NewValidator(weights Weights) *Validator {
	return NewValidatorWithLogger(weights, zap.NewNop())
}

// NewValidatorWithLogger creates a Validator with the given logger
func NewValidatorWithLogger(weights Weights, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{weights: weights, logger: logger}
}

// Validate derives a quality report from the final alignments. It never
// fails; empty input yields zero totals with no review required.
func (v *Validator) Validate(alignments []matcher.Alignment) Report {
	stats := SceneStatistics{TotalScenes: len(alignments)}
	confidenceSum := 0.0

	for _, a := range alignments {
		confidenceSum += a.Confidence

		switch {
		case a.Confidence > highConfidenceBound:
			stats.HighConfidence++
		case a.Confidence < lowConfidenceBound:
			stats.LowConfidence++
		default:
			stats.MediumConfidence++
		}

		if a.TemporalConflict {
			stats.TemporalConflicts++
		}
	}

	factors := Factors{}
	if stats.TotalScenes > 0 {
		total := float64(stats.TotalScenes)
		factors.AverageConfidence = confidenceSum / total
		factors.HighConfidenceRatio = float64(stats.HighConfidence) / total
		factors.TemporalConsistency = 1.0 - float64(stats.TemporalConflicts)/total
	}

	score := factors.AverageConfidence*v.weights.AverageConfidence +
		factors.HighConfidenceRatio*v.weights.HighConfidenceRatio +
		factors.TemporalConsistency*v.weights.TemporalConsistency

	total := float64(stats.TotalScenes)
	needsReview := stats.TotalScenes > 0 &&
		(score < 0.6 ||
			float64(stats.LowConfidence) > 0.3*total ||
			float64(stats.TemporalConflicts) > 0.1*total)

	report := Report{
		QualityScore:      score,
		QualityFactors:    factors,
		SceneStatistics:   stats,
		NeedsManualReview: needsReview,
		Recommendations:   v.recommendations(stats, factors),
	}

	v.logger.Info("alignment quality validated",
		zap.Float64("quality_score", score),
		zap.Int("total_scenes", stats.TotalScenes),
		zap.Int("temporal_conflicts", stats.TemporalConflicts),
		zap.Bool("needs_manual_review", needsReview))

	return report
}

// recommendations builds independent advisory messages; several typically co-occur
func (v *Validator) recommendations(stats SceneStatistics, factors Factors) []string {
	recommendations := []string{}

	if stats.TotalScenes == 0 {
		return recommendations
	}

	if factors.AverageConfidence < 0.6 {
		recommendations = append(recommendations,
			"Consider reviewing script content for clarity and detail")
	}

	if factors.HighConfidenceRatio < 0.5 {
		recommendations = append(recommendations,
			"Many scenes have low confidence matches - manual review recommended")
	}

	if factors.TemporalConsistency < 0.8 {
		recommendations = append(recommendations,
			"Temporal order issues detected - check scene sequence")
	}

	if stats.LowConfidence > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d scenes need manual review", stats.LowConfidence))
	}

	return recommendations
}
