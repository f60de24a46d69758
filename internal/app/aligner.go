package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"scenealign/internal/config"
	"scenealign/internal/embedding"
	"scenealign/internal/matcher"
	"scenealign/internal/quality"
	"scenealign/internal/refiner"
	"scenealign/internal/script"
	"scenealign/internal/transcript"
)

// Stage names one phase of the alignment pipeline, as surfaced in progress
// reports and error messages
type Stage string

const (
	StageParsingScript        Stage = "parsing_script"
	StageProcessingTranscript Stage = "processing_transcript"
	StageComputingEmbeddings  Stage = "computing_embeddings"
	StageMatchingScenes       Stage = "matching_scenes"
	StageRefiningAlignment    Stage = "refining_alignment"
	StageValidatingQuality    Stage = "validating_quality"
	StageCompleted            Stage = "completed"
)

// ProgressFunc receives coarse-grained progress at stage boundaries
type ProgressFunc func(stage Stage, percent int)

// ProcessingInfo summarizes an invocation for the orchestrating job layer
type ProcessingInfo struct {
	ScriptScenesCount       int     `json:"script_scenes_count"`
	TranscriptSegmentsCount int     `json:"transcript_segments_count"`
	MatchedScenes           int     `json:"matched_scenes"`
	AverageConfidence       float64 `json:"average_confidence"`
}

// Result is the complete output of one alignment invocation
type Result struct {
	Alignments []matcher.Alignment `json:"alignments"`
	Report     quality.Report      `json:"quality_report"`
	Info       ProcessingInfo      `json:"processing_info"`
}

// Aligner orchestrates the six alignment stages as one sequential computation.
// It owns no storage and emits no events; the caller persists the Result.
type Aligner struct {
	config              *config.Configuration
	logger              *zap.Logger
	scriptSegmenter     *script.Segmenter
	transcriptSegmenter *transcript.Segmenter
	provider            embedding.Provider
	matcher             *matcher.Matcher
	refiner             *refiner.Refiner
	validator           *quality.Validator
	progress            ProgressFunc
	timer               *StageTimer
}

// NewAligner creates an Aligner whose embedding provider loads ONNX models
// through a bounded model cache
func NewAligner(cfg *config.Configuration, logger *zap.Logger) (*Aligner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	downloader := embedding.NewModelDownloader(logger, cfg.GetModelsDir(), cfg.GetDownloadBaseURL())
	cache := embedding.NewModelCache(cfg.GetModelCacheSize(), func(name string) (embedding.Provider, error) {
		if err := downloader.EnsureModelExists(name); err != nil {
			return nil, &embedding.ModelLoadError{Model: name, Err: err}
		}
		return embedding.NewEncoder(embedding.EncoderConfig{
			ModelName:  name,
			ModelsDir:  cfg.GetModelsDir(),
			ORTLibrary: cfg.GetORTLibrary(),
			MaxSeqLen:  cfg.GetMaxSeqLen(),
		}, logger)
	}, logger)

	provider := embedding.NewCachedProvider(cache, cfg.GetModelName())
	return NewAlignerWithProvider(cfg, logger, provider)
}

// NewAlignerWithProvider creates an Aligner around an injected embedding
// provider; tests use this to avoid loading a real model
func NewAlignerWithProvider(cfg *config.Configuration, logger *zap.Logger, provider embedding.Provider) (*Aligner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	semantic, length, position, transcriptWeight := cfg.GetScoreWeights()
	confidenceW, highRatioW, temporalW := cfg.GetQualityWeights()

	return &Aligner{
		config:          cfg,
		logger:          logger,
		scriptSegmenter: script.NewSegmenterWithLogger(logger),
		transcriptSegmenter: transcript.NewSegmenterWithLogger(
			cfg.GetWindowSize(), cfg.GetSegmentDuration(), logger),
		provider: provider,
		matcher: matcher.NewMatcherWithLogger(matcher.Weights{
			Semantic:   semantic,
			Length:     length,
			Position:   position,
			Transcript: transcriptWeight,
		}, cfg.GetWordsPerMinute(), logger),
		refiner: refiner.NewRefinerWithLogger(
			cfg.GetOverlapPenalty(), cfg.GetConfidenceThreshold(), logger),
		validator: quality.NewValidatorWithLogger(quality.Weights{
			AverageConfidence:   confidenceW,
			HighConfidenceRatio: highRatioW,
			TemporalConsistency: temporalW,
		}, logger),
		timer: NewStageTimer(),
	}, nil
}

// SetProgressFunc installs a callback invoked at each stage boundary
func (al *Aligner) SetProgressFunc(fn ProgressFunc) {
	al.progress = fn
}

// StageTimings returns the per-stage durations of the last invocation
func (al *Aligner) StageTimings() *StageTimer {
	return al.timer
}

func (al *Aligner) reportProgress(stage Stage, percent int) {
	if al.progress != nil {
		al.progress(stage, percent)
	}
}

// checkContext implements cooperative cancellation between stages; stages are
// never interrupted mid-flight
func checkContext(ctx context.Context, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before stage %s: %w", stage, err)
	}
	return nil
}

// Align runs the full pipeline over raw script text and a transcript payload.
// Any stage failure aborts the invocation with no partial output.
func (al *Aligner) Align(ctx context.Context, scriptText string, payload *transcript.Payload) (*Result, error) {
	al.logger.Info("starting scene alignment",
		zap.Int("script_bytes", len(scriptText)))

	// Stage 1: script segmentation
	if err := checkContext(ctx, StageParsingScript); err != nil {
		return nil, err
	}
	al.reportProgress(StageParsingScript, 10)
	stop := al.timer.Track(StageParsingScript)
	scenes := al.scriptSegmenter.Segment(scriptText)
	stop()

	// Stage 2: transcript segmentation
	if err := checkContext(ctx, StageProcessingTranscript); err != nil {
		return nil, err
	}
	al.reportProgress(StageProcessingTranscript, 30)
	stop = al.timer.Track(StageProcessingTranscript)
	segments, err := al.transcriptSegmenter.Segment(payload)
	stop()
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageProcessingTranscript, err)
	}

	// Stage 3: embeddings for both sides
	if err := checkContext(ctx, StageComputingEmbeddings); err != nil {
		return nil, err
	}
	al.reportProgress(StageComputingEmbeddings, 50)
	stop = al.timer.Track(StageComputingEmbeddings)
	sceneEmbeddings, err := al.provider.Embed(ctx, matcher.SceneEmbeddingTexts(scenes))
	if err != nil {
		stop()
		return nil, fmt.Errorf("stage %s: %w", StageComputingEmbeddings, err)
	}
	segmentEmbeddings, err := al.provider.Embed(ctx, matcher.SegmentEmbeddingTexts(segments))
	stop()
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageComputingEmbeddings, err)
	}

	// Stage 4: semantic matching
	if err := checkContext(ctx, StageMatchingScenes); err != nil {
		return nil, err
	}
	al.reportProgress(StageMatchingScenes, 70)
	stop = al.timer.Track(StageMatchingScenes)
	alignments, err := al.matcher.Match(scenes, segments, sceneEmbeddings, segmentEmbeddings)
	stop()
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageMatchingScenes, err)
	}

	// Stage 5: temporal refinement
	if err := checkContext(ctx, StageRefiningAlignment); err != nil {
		return nil, err
	}
	al.reportProgress(StageRefiningAlignment, 90)
	stop = al.timer.Track(StageRefiningAlignment)
	refined := al.refiner.Refine(alignments)
	stop()

	// Stage 6: quality validation
	if err := checkContext(ctx, StageValidatingQuality); err != nil {
		return nil, err
	}
	stop = al.timer.Track(StageValidatingQuality)
	report := al.validator.Validate(refined)
	stop()

	al.reportProgress(StageCompleted, 100)

	result := &Result{
		Alignments: refined,
		Report:     report,
		Info:       al.processingInfo(scenes, segments, refined),
	}

	al.logger.Info("scene alignment completed",
		zap.Int("scenes", len(scenes)),
		zap.Int("segments", len(segments)),
		zap.Int("matched_scenes", result.Info.MatchedScenes),
		zap.Float64("quality_score", report.QualityScore),
		zap.Duration("total_duration", al.timer.Total()))

	return result, nil
}

// AlignFiles runs the pipeline over a script file (with encoding fallback)
// and a transcript JSON file
func (al *Aligner) AlignFiles(ctx context.Context, scriptPath, transcriptPath string) (*Result, error) {
	scriptText, err := al.scriptSegmenter.ReadScriptFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageParsingScript, err)
	}

	payload, err := transcript.LoadPayload(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageProcessingTranscript, err)
	}

	return al.Align(ctx, scriptText, payload)
}

func (al *Aligner) processingInfo(scenes []script.Scene, segments []transcript.Segment, refined []matcher.Alignment) ProcessingInfo {
	threshold := al.config.GetConfidenceThreshold()

	matched := 0
	confidenceSum := 0.0
	for _, a := range refined {
		confidenceSum += a.Confidence
		if a.Confidence > threshold {
			matched++
		}
	}

	average := 0.0
	if len(refined) > 0 {
		average = confidenceSum / float64(len(refined))
	}

	return ProcessingInfo{
		ScriptScenesCount:       len(scenes),
		TranscriptSegmentsCount: len(segments),
		MatchedScenes:           matched,
		AverageConfidence:       average,
	}
}
