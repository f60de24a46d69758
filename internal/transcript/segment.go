package transcript

import "fmt"

// WindowType distinguishes base segments from sliding-window combinations
type WindowType string

const (
	// WindowTypeSingle marks a segment covering exactly one base transcript segment
	WindowTypeSingle WindowType = "single"
	// WindowTypeWindow marks a segment combining several consecutive base segments
	WindowTypeWindow WindowType = "window"
)

// Segment represents one candidate time-window of transcribed speech offered
// to the matcher. Both single and window entries share the same candidate pool
// so the matcher can pick the best granularity per scene.
type Segment struct {
	SegmentID  string     `json:"segment_id"`
	StartTime  float64    `json:"start_time"`
	EndTime    float64    `json:"end_time"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	WindowType WindowType `json:"window_type"`
}

// Validate checks if the Segment has valid values
func (s *Segment) Validate() error {
	if s.SegmentID == "" {
		return fmt.Errorf("segment_id cannot be empty")
	}

	if s.StartTime < 0 {
		return fmt.Errorf("start_time cannot be negative")
	}

	if s.EndTime < s.StartTime {
		return fmt.Errorf("end_time must not precede start_time")
	}

	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0")
	}

	if s.WindowType != WindowTypeSingle && s.WindowType != WindowTypeWindow {
		return fmt.Errorf("window_type must be single or window")
	}

	return nil
}

// Duration returns the segment's time span in seconds
func (s *Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}
