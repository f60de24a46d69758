package matcher

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"scenealign/internal/script"
	"scenealign/internal/transcript"
)

// topMatches is how many ranked candidates are considered per scene: the best
// becomes the primary match and the next two are preserved as alternates
const topMatches = 5

// previewLength is the display-only truncation applied to scene text in results
const previewLength = 200

var (
	// ErrNoScenes indicates the script segmenter produced nothing to match
	ErrNoScenes = errors.New("no scenes to match")
	// ErrNoSegments indicates the transcript segmenter produced no candidates
	ErrNoSegments = errors.New("no transcript segments to match")
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Weights blends the four confidence factors into one composite score
type Weights struct {
	Semantic   float64
	Length     float64
	Position   float64
	Transcript float64
}

// DefaultWeights favors semantic similarity as the dominant signal, with the
// cheap auxiliary signals breaking near-ties
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Length: 0.2, Position: 0.2, Transcript: 0.1}
}

// Matcher scores every scene against every candidate segment and selects the
// best match plus up to two alternates per scene
type Matcher struct {
	weights        Weights
	wordsPerMinute float64
	logger         *zap.Logger
}

// NewMatcher creates a Matcher with the given scoring weights and speaking rate
func NewMatcher(weights Weights, wordsPerMinute float64) *Matcher {
	return NewMatcherWithLogger(weights, wordsPerMinute, zap.NewNop())
}

// NewMatcherWithLogger creates a Matcher with the given logger
func NewMatcherWithLogger(weights Weights, wordsPerMinute float64, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if wordsPerMinute <= 0 {
		wordsPerMinute = 150
	}
	return &Matcher{
		weights:        weights,
		wordsPerMinute: wordsPerMinute,
		logger:         logger,
	}
}

// SceneEmbeddingText prepares a scene's text for the embedding provider:
// internal whitespace is collapsed and any markers are prepended as structural
// context (e.g. "INT. KITCHEN - DAY she cooks dinner")
func SceneEmbeddingText(scene script.Scene) string {
	text := strings.TrimSpace(whitespaceRegex.ReplaceAllString(scene.Text, " "))
	if len(scene.Markers) > 0 {
		return strings.Join(scene.Markers, " ") + " " + text
	}
	return text
}

// SceneEmbeddingTexts prepares every scene for the embedding provider
func SceneEmbeddingTexts(scenes []script.Scene) []string {
	texts := make([]string, len(scenes))
	for i, scene := range scenes {
		texts[i] = SceneEmbeddingText(scene)
	}
	return texts
}

// SegmentEmbeddingTexts prepares every candidate segment for the embedding provider
func SegmentEmbeddingTexts(segments []transcript.Segment) []string {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	return texts
}

// Match computes an Alignment per scene, in scene order. Embeddings must
// correspond positionally to their collections.
func (m *Matcher) Match(
	scenes []script.Scene,
	segments []transcript.Segment,
	sceneEmbeddings [][]float32,
	segmentEmbeddings [][]float32,
) ([]Alignment, error) {
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if len(sceneEmbeddings) != len(scenes) {
		return nil, fmt.Errorf("scene embedding count %d does not match scene count %d",
			len(sceneEmbeddings), len(scenes))
	}
	if len(segmentEmbeddings) != len(segments) {
		return nil, fmt.Errorf("segment embedding count %d does not match segment count %d",
			len(segmentEmbeddings), len(segments))
	}

	alignments := make([]Alignment, 0, len(scenes))

	for i, scene := range scenes {
		similarities := make([]float64, len(segments))
		for j := range segments {
			similarities[j] = cosineSimilarity(sceneEmbeddings[i], segmentEmbeddings[j])
		}

		ranked := rankDescending(similarities, topMatches)
		bestIdx := ranked[0]
		best := segments[bestIdx]

		factors := Factors{
			SemanticSimilarity:   similarities[bestIdx],
			LengthSimilarity:     m.lengthSimilarity(scene, best),
			PositionSimilarity:   positionSimilarity(i, bestIdx, len(scenes), len(segments)),
			TranscriptConfidence: best.Confidence,
		}

		confidence := clamp01(
			factors.SemanticSimilarity*m.weights.Semantic +
				factors.LengthSimilarity*m.weights.Length +
				factors.PositionSimilarity*m.weights.Position +
				factors.TranscriptConfidence*m.weights.Transcript)

		alternates := make([]AlternativeMatch, 0, 2)
		for _, idx := range ranked[1:] {
			if len(alternates) == 2 {
				break
			}
			alternates = append(alternates, AlternativeMatch{
				SegmentID:  segments[idx].SegmentID,
				StartTime:  segments[idx].StartTime,
				EndTime:    segments[idx].EndTime,
				Confidence: clamp01(similarities[idx]),
			})
		}

		alignments = append(alignments, Alignment{
			SceneNumber:        scene.SceneNumber,
			SceneText:          truncatePreview(scene.Text),
			MatchedSegmentID:   best.SegmentID,
			VideoStartTime:     best.StartTime,
			VideoEndTime:       best.EndTime,
			Confidence:         confidence,
			ConfidenceFactors:  factors,
			AlternativeMatches: alternates,
		})

		m.logger.Debug("scene matched",
			zap.Int("scene", scene.SceneNumber),
			zap.String("segment", best.SegmentID),
			zap.Float64("confidence", confidence))
	}

	return alignments, nil
}

// lengthSimilarity compares the scene's word count to the word count implied
// by the segment's duration at the assumed speaking rate
func (m *Matcher) lengthSimilarity(scene script.Scene, seg transcript.Segment) float64 {
	estimatedWords := seg.Duration() / 60.0 * m.wordsPerMinute
	if estimatedWords == 0 {
		return 0
	}

	sceneWords := float64(scene.WordCount)
	ratio := minFloat(sceneWords, estimatedWords) / maxFloat(sceneWords, estimatedWords)
	return ratio
}

// positionSimilarity compares the scene's and segment's relative positions in
// their respective sequences
func positionSimilarity(sceneIdx, segmentIdx, totalScenes, totalSegments int) float64 {
	scenePos := normalizedPosition(sceneIdx, totalScenes)
	segmentPos := normalizedPosition(segmentIdx, totalSegments)

	diff := scenePos - segmentPos
	if diff < 0 {
		diff = -diff
	}
	return 1.0 - diff
}

func normalizedPosition(idx, total int) float64 {
	if total <= 1 {
		return 0
	}
	return float64(idx) / float64(total-1)
}

// rankDescending returns the indices of the top n values, highest first.
// Ties keep the earlier index first.
func rankDescending(values []float64, n int) []int {
	indices := make([]int, len(values))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return values[indices[a]] > values[indices[b]]
	})
	if len(indices) > n {
		indices = indices[:n]
	}
	return indices
}

// truncatePreview limits scene text to a display-friendly length
func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// cosineSimilarity computes the cosine of the angle between two vectors,
// accumulating in float64 for stability
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
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

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
