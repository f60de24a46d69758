package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"scenealign/internal/app"
	"scenealign/internal/config"
	"scenealign/internal/logger"
)

// main is the application entry point
func main() {
	var (
		scriptFlag     = flag.String("script", "", "Path to the script file")
		transcriptFlag = flag.String("transcript", "", "Path to the transcript JSON file")
		outputFlag     = flag.String("output", "", "Write the result JSON to this file instead of stdout")
		verboseFlag    = flag.Bool("verbose", false, "Use human-readable console logging")
		helpFlag       = flag.Bool("help", false, "Show help message")
		versionFlag    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	if *scriptFlag == "" || *transcriptFlag == "" {
		fmt.Fprintln(os.Stderr, "both -script and -transcript are required")
		printHelp()
		os.Exit(2)
	}

	if err := runAlignment(*scriptFlag, *transcriptFlag, *outputFlag, *verboseFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Alignment error: %v\n", err)
		os.Exit(1)
	}
}

// runAlignment contains the core application logic that can be tested
func runAlignment(scriptPath, transcriptPath, outputPath string, verbose bool) error {
	newLogger := logger.NewProductionLogger
	if verbose {
		newLogger = logger.NewDevelopmentLogger
	}
	zapLogger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("scene alignment starting",
		zap.String("component", "main"),
		zap.String("script", scriptPath),
		zap.String("transcript", transcriptPath))

	// Load configuration from config file if CONFIG_PATH is set, otherwise
	// use environment variables
	var cfg *config.Configuration
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		cfg, err = config.NewConfigurationFromFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config from file %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.NewConfigurationFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	aligner, err := app.NewAligner(cfg, zapLogger)
	if err != nil {
		return fmt.Errorf("failed to create aligner: %w", err)
	}

	aligner.SetProgressFunc(func(stage app.Stage, percent int) {
		zapLogger.Info("alignment progress",
			zap.String("stage", string(stage)),
			zap.Int("percent", percent))
	})

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		zapLogger.Info("received shutdown signal",
			zap.String("signal", sig.String()),
			zap.String("component", "main"))
		cancel()
	}()

	result, err := aligner.AlignFiles(ctx, scriptPath, transcriptPath)
	if err != nil {
		return fmt.Errorf("alignment failed: %w", err)
	}

	// Append to the configured result log for the job layer
	writer, err := logger.NewResultWriter(cfg, zapLogger)
	if err != nil {
		return fmt.Errorf("failed to create result writer: %w", err)
	}
	if err := writer.WriteResult(result); err != nil {
		zapLogger.Warn("failed to append result log", zap.Error(err))
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonBytes, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		zapLogger.Info("result written",
			zap.String("path", outputPath),
			zap.String("component", "main"))
		return nil
	}

	fmt.Println(string(jsonBytes))
	return nil
}

// printHelp displays command line usage information
func printHelp() {
	fmt.Println("SceneAlign - Script-to-Video Scene Alignment")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("    scenealign -script <path> -transcript <path> [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("    -script      Path to the script file (required)")
	fmt.Println("    -transcript  Path to the transcript JSON file (required)")
	fmt.Println("    -output      Write result JSON to this file instead of stdout")
	fmt.Println("    -verbose     Use human-readable console logging")
	fmt.Println("    -help        Show this help message")
	fmt.Println("    -version     Show version information")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("    Set CONFIG_PATH to load a YAML config file; otherwise")
	fmt.Println("    SCENEALIGN_* environment variables apply.")
}

// printVersion displays version and build information
func printVersion() {
	fmt.Println("SceneAlign")
	fmt.Println("Version: 1.0")
	fmt.Println("Architecture: Go + ONNX Runtime sentence embeddings")
}
