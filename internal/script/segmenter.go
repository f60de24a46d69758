package script

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// markerPatterns are the scene boundary cues recognized in script text.
// Matching is case-insensitive and unanchored except for the numbered-line
// pattern, so a slugline is detected anywhere in the line.
var markerPatterns = []string{
	`SCENE\s+(\d+)`,
	`INT\.|EXT\.`,
	`FADE IN:`,
	`CUT TO:`,
	`^\d+\.`,
	`Chapter\s+\d+`,
	`ACT\s+[IVX]+`,
}

// Segmenter splits raw script text into ordered scenes using marker-pattern detection
type Segmenter struct {
	logger *zap.Logger
	// Pre-compiled regexes for performance
	patterns []*regexp.Regexp
}

// NewSegmenter creates a new script Segmenter
func NewSegmenter() *Segmenter {
	return NewSegmenterWithLogger(zap.NewNop())
}

// NewSegmenterWithLogger creates a new script Segmenter with the given logger
func NewSegmenterWithLogger(logger *zap.Logger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop()
	}

	patterns := make([]*regexp.Regexp, len(markerPatterns))
	for i, p := range markerPatterns {
		patterns[i] = regexp.MustCompile(`(?i)` + p)
	}

	return &Segmenter{
		logger:   logger,
		patterns: patterns,
	}
}

// IsMarkerLine reports whether the line matches any recognized scene marker
func (sg *Segmenter) IsMarkerLine(line string) bool {
	for _, pattern := range sg.patterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// Segment splits raw script text into an ordered sequence of scenes. Marker
// lines close the scene in progress once it has accumulated prose; marker
// lines seen before any prose attach to the pending scene instead, so leading
// sluglines never produce empty scenes. A marker-free document yields exactly
// one scene spanning the whole input.
func (sg *Segmenter) Segment(rawText string) []Scene {
	var scenes []Scene
	var markers []string
	var body strings.Builder

	flush := func() {
		text := strings.TrimSpace(body.String())
		if text == "" {
			return
		}
		if markers == nil {
			markers = []string{}
		}
		scenes = append(scenes, Scene{
			SceneNumber: len(scenes) + 1,
			Text:        text,
			WordCount:   len(strings.Fields(text)),
			Markers:     markers,
		})
		markers = nil
		body.Reset()
	}

	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if sg.IsMarkerLine(line) {
			if strings.TrimSpace(body.String()) != "" {
				flush()
			}
			markers = append(markers, line)
			continue
		}

		body.WriteString(" ")
		body.WriteString(line)
	}

	// Flush the final scene
	flush()

	// Marker-free or empty-bodied input becomes a single whole-text scene
	if len(scenes) == 0 {
		text := strings.TrimSpace(rawText)
		scenes = []Scene{{
			SceneNumber: 1,
			Text:        text,
			WordCount:   len(strings.Fields(text)),
			Markers:     []string{},
		}}
	}

	sg.logger.Debug("script segmented",
		zap.Int("scenes", len(scenes)))

	return scenes
}
