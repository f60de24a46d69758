package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

// setDefaults applies the default value for every tunable the aligner exposes
func setDefaults(v *viper.Viper) {
	v.SetDefault("alignment.confidence_threshold", 0.7)
	v.SetDefault("alignment.window_size", 3)
	v.SetDefault("alignment.words_per_minute", 150.0)
	v.SetDefault("alignment.segment_duration_sec", 10.0)
	v.SetDefault("alignment.overlap_penalty", 0.3)
	v.SetDefault("alignment.weight_semantic", 0.5)
	v.SetDefault("alignment.weight_length", 0.2)
	v.SetDefault("alignment.weight_position", 0.2)
	v.SetDefault("alignment.weight_transcript", 0.1)
	v.SetDefault("quality.weight_confidence", 0.5)
	v.SetDefault("quality.weight_high_ratio", 0.3)
	v.SetDefault("quality.weight_temporal", 0.2)
	v.SetDefault("embedding.model_name", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.models_dir", "./models")
	v.SetDefault("embedding.download_base_url", "https://huggingface.co/sentence-transformers")
	v.SetDefault("embedding.cache_size", 3)
	v.SetDefault("embedding.ort_library", "")
	v.SetDefault("embedding.max_seq_len", 256)
	v.SetDefault("output.file_path", "./output/alignments.jsonl")
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	v := viper.New()
	setDefaults(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration instance from a config file
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return &Configuration{viper: v}, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from environment variables
func NewConfigurationFromEnv() (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	// Set up environment variable mapping
	v.SetEnvPrefix("SCENEALIGN")
	v.AutomaticEnv()

	// Map specific environment variables
	v.BindEnv("alignment.confidence_threshold", "ALIGNMENT_CONFIDENCE_THRESHOLD")
	v.BindEnv("alignment.window_size", "ALIGNMENT_WINDOW_SIZE")
	v.BindEnv("embedding.model_name", "EMBEDDING_MODEL_NAME")
	v.BindEnv("embedding.models_dir", "EMBEDDING_MODELS_DIR")
	v.BindEnv("embedding.ort_library", "EMBEDDING_ORT_LIBRARY")
	v.BindEnv("output.file_path", "OUTPUT_FILE_PATH")

	return &Configuration{viper: v}, nil
}

// GetConfidenceThreshold returns the confidence below which a scene is flagged for manual review
func (c *Configuration) GetConfidenceThreshold() float64 {
	return c.viper.GetFloat64("alignment.confidence_threshold")
}

// GetWindowSize returns the number of consecutive base segments combined into a window segment
func (c *Configuration) GetWindowSize() int {
	return c.viper.GetInt("alignment.window_size")
}

// GetWordsPerMinute returns the speaking-rate assumption used for length similarity
func (c *Configuration) GetWordsPerMinute() float64 {
	return c.viper.GetFloat64("alignment.words_per_minute")
}

// GetSegmentDuration returns the target duration in seconds when grouping words into segments
func (c *Configuration) GetSegmentDuration() float64 {
	return c.viper.GetFloat64("alignment.segment_duration_sec")
}

// GetOverlapPenalty returns the fractional confidence penalty applied to temporally conflicting scenes
func (c *Configuration) GetOverlapPenalty() float64 {
	return c.viper.GetFloat64("alignment.overlap_penalty")
}

// GetScoreWeights returns the composite-confidence weights in semantic, length,
// position, transcript order
func (c *Configuration) GetScoreWeights() (semantic, length, position, transcript float64) {
	return c.viper.GetFloat64("alignment.weight_semantic"),
		c.viper.GetFloat64("alignment.weight_length"),
		c.viper.GetFloat64("alignment.weight_position"),
		c.viper.GetFloat64("alignment.weight_transcript")
}

// GetQualityWeights returns the quality-score weights in average confidence,
// high-confidence ratio, temporal consistency order
func (c *Configuration) GetQualityWeights() (confidence, highRatio, temporal float64) {
	return c.viper.GetFloat64("quality.weight_confidence"),
		c.viper.GetFloat64("quality.weight_high_ratio"),
		c.viper.GetFloat64("quality.weight_temporal")
}

// GetModelName returns the configured sentence-embedding model name
func (c *Configuration) GetModelName() string {
	return c.viper.GetString("embedding.model_name")
}

// GetModelsDir returns the directory holding downloaded embedding models
func (c *Configuration) GetModelsDir() string {
	return c.viper.GetString("embedding.models_dir")
}

// GetDownloadBaseURL returns the base URL model files are fetched from
func (c *Configuration) GetDownloadBaseURL() string {
	return c.viper.GetString("embedding.download_base_url")
}

// GetModelCacheSize returns the maximum number of embedding models held warm
func (c *Configuration) GetModelCacheSize() int {
	return c.viper.GetInt("embedding.cache_size")
}

// GetORTLibrary returns the onnxruntime shared library path, empty for the system default
func (c *Configuration) GetORTLibrary() string {
	return c.viper.GetString("embedding.ort_library")
}

// GetMaxSeqLen returns the tokenizer truncation length
func (c *Configuration) GetMaxSeqLen() int {
	return c.viper.GetInt("embedding.max_seq_len")
}

// GetOutputFilePath returns the path of the alignment result log file
func (c *Configuration) GetOutputFilePath() string {
	return c.viper.GetString("output.file_path")
}
