package script

import (
	"fmt"
	"strings"
)

// Scene represents a contiguous narrative unit of the script delimited by
// marker lines such as sluglines or chapter headers
type Scene struct {
	SceneNumber int      `json:"scene_number"`
	Text        string   `json:"text"`
	WordCount   int      `json:"word_count"`
	Markers     []string `json:"markers"`
}

// Validate checks if the Scene has valid values
func (s *Scene) Validate() error {
	if s.SceneNumber < 1 {
		return fmt.Errorf("scene_number must be positive")
	}

	if s.WordCount != len(strings.Fields(s.Text)) {
		return fmt.Errorf("word_count must equal the whitespace token count of text")
	}

	return nil
}
