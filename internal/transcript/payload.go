package transcript

import (
	"encoding/json"
	"fmt"
	"os"
)

// RawSegment is one sentence-level segment as produced by the transcription worker
type RawSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RawWord is one word-level timestamp as produced by the transcription worker
type RawWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Payload is the transcript input contract: at least one of Segments or Words
// must be non-empty
type Payload struct {
	Segments []RawSegment `json:"segments"`
	Words    []RawWord    `json:"words"`
}

// IsEmpty reports whether the payload carries no usable transcript data
func (p *Payload) IsEmpty() bool {
	return len(p.Segments) == 0 && len(p.Words) == 0
}

// LoadPayload reads a transcript payload from a JSON file
func LoadPayload(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file %s: %w", path, err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse transcript file %s: %w", path, err)
	}

	return &payload, nil
}
