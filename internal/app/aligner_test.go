package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	"scenealign/internal/config"
	"scenealign/internal/embedding"
	"scenealign/internal/transcript"
)

// fakeProvider gives deterministic embeddings keyed on text content so tests
// control which scene lands on which segment
type fakeProvider struct {
	err error
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "cook"):
			out[i] = []float32{1, 0}
		case strings.Contains(lower, "walk"):
			out[i] = []float32{0, 1}
		default:
			out[i] = []float32{0.5, 0.5}
		}
	}
	return out, nil
}

func testPayload() *transcript.Payload {
	return &transcript.Payload{Segments: []transcript.RawSegment{
		{Start: 0, End: 8, Text: "she cooks dinner tonight", Confidence: 0.95},
		{Start: 10, End: 18, Text: "he walks away slowly", Confidence: 0.95},
	}}
}

const testScript = "INT. KITCHEN\nShe cooks dinner.\nEXT. STREET\nHe walks away."

func TestNewAlignerWithProvider(t *testing.T) {
	t.Run("should require configuration", func(t *testing.T) {
		// Act
		_, err := NewAlignerWithProvider(nil, zap.NewNop(), &fakeProvider{})

		// Assert
		assert.Error(t, err)
	})

	t.Run("should require an embedding provider", func(t *testing.T) {
		// Act
		_, err := NewAlignerWithProvider(config.NewConfiguration(), zap.NewNop(), nil)

		// Assert
		assert.Error(t, err)
	})
}

func TestNewAligner(t *testing.T) {
	t.Run("should attempt to download a missing model before loading it", func(t *testing.T) {
		// Arrange - a model repository that has no files to offer
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		configYAML := fmt.Sprintf("embedding:\n  models_dir: %q\n  download_base_url: %q\n",
			filepath.Join(tmpDir, "models"), server.URL)
		require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0644))

		cfg, err := config.NewConfigurationFromFile(configPath)
		require.NoError(t, err)

		aligner, err := NewAligner(cfg, zap.NewNop())
		require.NoError(t, err)

		// Act - the embedding stage forces the model load
		_, err = aligner.Align(context.Background(), testScript, testPayload())

		// Assert - the fetch was attempted and its failure surfaces as a load error
		require.Error(t, err)
		assert.Greater(t, requests, 0)

		var loadErr *embedding.ModelLoadError
		assert.ErrorAs(t, err, &loadErr)
		assert.Contains(t, err.Error(), string(StageComputingEmbeddings))
	})
}

func TestAligner_Align(t *testing.T) {
	newAligner := func(t *testing.T) *Aligner {
		aligner, err := NewAlignerWithProvider(config.NewConfiguration(), zap.NewNop(), &fakeProvider{})
		require.NoError(t, err)
		return aligner
	}

	t.Run("should align well-separated scenes in temporal order", func(t *testing.T) {
		// Arrange
		aligner := newAligner(t)

		// Act
		result, err := aligner.Align(context.Background(), testScript, testPayload())

		// Assert
		require.NoError(t, err)
		require.Len(t, result.Alignments, 2)

		first := result.Alignments[0]
		second := result.Alignments[1]
		assert.Equal(t, 1, first.SceneNumber)
		assert.Equal(t, "single_0", first.MatchedSegmentID)
		assert.Equal(t, "single_1", second.MatchedSegmentID)
		assert.GreaterOrEqual(t, second.VideoStartTime, first.VideoEndTime)
		assert.False(t, first.TemporalConflict)
		assert.False(t, second.TemporalConflict)

		assert.Equal(t, 2, result.Info.ScriptScenesCount)
		assert.Equal(t, 2, result.Info.TranscriptSegmentsCount)
		assert.Equal(t, 2, result.Report.SceneStatistics.TotalScenes)
	})

	t.Run("should report progress at every stage boundary", func(t *testing.T) {
		// Arrange
		aligner := newAligner(t)

		var stages []Stage
		var percents []int
		aligner.SetProgressFunc(func(stage Stage, percent int) {
			stages = append(stages, stage)
			percents = append(percents, percent)
		})

		// Act
		_, err := aligner.Align(context.Background(), testScript, testPayload())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []Stage{
			StageParsingScript,
			StageProcessingTranscript,
			StageComputingEmbeddings,
			StageMatchingScenes,
			StageRefiningAlignment,
			StageCompleted,
		}, stages)
		assert.Equal(t, []int{10, 30, 50, 70, 90, 100}, percents)
	})

	t.Run("should record stage timings", func(t *testing.T) {
		// Arrange
		aligner := newAligner(t)

		// Act
		_, err := aligner.Align(context.Background(), testScript, testPayload())

		// Assert
		require.NoError(t, err)
		durations := aligner.StageTimings().Durations()
		assert.Contains(t, durations, StageParsingScript)
		assert.Contains(t, durations, StageMatchingScenes)
		assert.Contains(t, durations, StageValidatingQuality)
	})

	t.Run("should abort before starting when context is cancelled", func(t *testing.T) {
		// Arrange
		aligner := newAligner(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act
		result, err := aligner.Align(ctx, testScript, testPayload())

		// Assert - all-or-nothing: no partial output
		assert.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, result)
	})

	t.Run("should surface empty transcript as ErrNoTranscriptData with stage name", func(t *testing.T) {
		// Arrange
		aligner := newAligner(t)

		// Act
		_, err := aligner.Align(context.Background(), testScript, &transcript.Payload{})

		// Assert
		assert.ErrorIs(t, err, transcript.ErrNoTranscriptData)
		assert.Contains(t, err.Error(), string(StageProcessingTranscript))
	})

	t.Run("should surface embedding failures with stage name", func(t *testing.T) {
		// Arrange
		provider := &fakeProvider{err: errors.New("model backend down")}
		aligner, err := NewAlignerWithProvider(config.NewConfiguration(), zap.NewNop(), provider)
		require.NoError(t, err)

		// Act
		_, err = aligner.Align(context.Background(), testScript, testPayload())

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), string(StageComputingEmbeddings))
	})
}

func TestAligner_AlignFiles(t *testing.T) {
	t.Run("should align a script file against a transcript file", func(t *testing.T) {
		// Arrange
		tmpDir := t.TempDir()

		scriptPath := filepath.Join(tmpDir, "script.txt")
		require.NoError(t, os.WriteFile(scriptPath, []byte(testScript), 0644))

		transcriptPath := filepath.Join(tmpDir, "transcript.json")
		transcriptJSON := `{"segments":[
			{"start":0,"end":8,"text":"she cooks dinner tonight","confidence":0.95},
			{"start":10,"end":18,"text":"he walks away slowly","confidence":0.95}
		]}`
		require.NoError(t, os.WriteFile(transcriptPath, []byte(transcriptJSON), 0644))

		aligner, err := NewAlignerWithProvider(config.NewConfiguration(), zap.NewNop(), &fakeProvider{})
		require.NoError(t, err)

		// Act
		result, err := aligner.AlignFiles(context.Background(), scriptPath, transcriptPath)

		// Assert
		require.NoError(t, err)
		assert.Len(t, result.Alignments, 2)
	})

	t.Run("should fail for a missing script file", func(t *testing.T) {
		// Arrange
		aligner, err := NewAlignerWithProvider(config.NewConfiguration(), zap.NewNop(), &fakeProvider{})
		require.NoError(t, err)

		// Act
		_, err = aligner.AlignFiles(context.Background(), "/nonexistent/script.txt", "/nonexistent/transcript.json")

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), string(StageParsingScript))
	})
}
