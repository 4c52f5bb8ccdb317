package orchestrator

// FrameOutcome is the result of classifying one sampled frame. The zero value
// is NotDetected; no-face frames and classifier failures both end up here.
type FrameOutcome struct {
	Detected bool
	Label    string
}

var NotDetected = FrameOutcome{}

func Detected(label string) FrameOutcome {
	return FrameOutcome{Detected: true, Label: label}
}

type Entry struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Report is the ranked outcome of one video analysis. No entries means no
// frame produced a detection.
type Report struct {
	Entries []Entry `json:"entries" yaml:"entries"`
	// Filled in by the pipeline, not by Format.
	Stride        int `json:"stride,omitempty" yaml:"stride,omitempty"`
	SampledFrames int `json:"sampled_frames,omitempty" yaml:"sampled_frames,omitempty"`
}

func (r Report) Empty() bool { return len(r.Entries) == 0 }

type Score struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

type TextResult struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
}

type ImageResult struct {
	Dominant string  `json:"dominant_emotion" yaml:"dominant_emotion"`
	Scores   []Score `json:"scores" yaml:"scores"` // percentages, by label
}

type AudioResult struct {
	Emotions []Score `json:"emotions" yaml:"emotions"`
}
