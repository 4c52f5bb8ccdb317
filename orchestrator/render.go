package orchestrator

import "fmt"

const (
	ModalityText  = "text"
	ModalityImage = "image"
	ModalityAudio = "audio"
	ModalityVideo = "video"
)

// NoDetectionsMessage is shown for a video that was analyzed end to end
// without a single detection. It is not an error.
const NoDetectionsMessage = "Could not detect any faces or emotions in the video."

// Summary is the caller-facing rendering of one analysis, shared by the web
// page and the CLI.
type Summary struct {
	Modality string       `json:"modality" yaml:"modality"`
	Input    string       `json:"input" yaml:"input"`
	OK       bool         `json:"ok" yaml:"ok"`
	Lines    []string     `json:"lines" yaml:"lines"`
	Text     *TextResult  `json:"text,omitempty" yaml:"text,omitempty"`
	Image    *ImageResult `json:"image,omitempty" yaml:"image,omitempty"`
	Audio    *AudioResult `json:"audio,omitempty" yaml:"audio,omitempty"`
	Video    *Report      `json:"video,omitempty" yaml:"video,omitempty"`
}

func failed(modality, input, line string) Summary {
	return Summary{Modality: modality, Input: input, Lines: []string{line}}
}

func SummarizeText(input string, res *TextResult, err error) Summary {
	if err != nil {
		return failed(ModalityText, input, fmt.Sprintf("An error occurred during text analysis: %v", err))
	}
	return Summary{
		Modality: ModalityText,
		Input:    input,
		OK:       true,
		Lines:    []string{fmt.Sprintf("Sentiment: %s (Score: %.4f)", res.Label, res.Score)},
		Text:     res,
	}
}

func SummarizeAudio(input string, res *AudioResult, err error) Summary {
	if err != nil {
		return failed(ModalityAudio, input, fmt.Sprintf("An error occurred during audio analysis: %v", err))
	}
	lines := []string{"--- Emotion Analysis Results (from Tone) ---"}
	for _, e := range res.Emotions {
		lines = append(lines, fmt.Sprintf("Emotion: %s, Score: %.4f", e.Label, e.Value))
	}
	return Summary{Modality: ModalityAudio, Input: input, OK: true, Lines: lines, Audio: res}
}

func SummarizeImage(input string, res *ImageResult, err error) Summary {
	if err != nil {
		return failed(ModalityImage, input, fmt.Sprintf("An error occurred: %v (This often happens if a face isn't detected.)", err))
	}
	lines := []string{
		fmt.Sprintf("Dominant Emotion: %s", res.Dominant),
		"",
		"--- Full Emotion Analysis ---",
	}
	for _, s := range res.Scores {
		lines = append(lines, fmt.Sprintf("%s: %.2f%%", s.Label, s.Value))
	}
	return Summary{Modality: ModalityImage, Input: input, OK: true, Lines: lines, Image: res}
}

func SummarizeVideo(input string, rep Report, err error) Summary {
	if err != nil {
		return failed(ModalityVideo, input, fmt.Sprintf("An error occurred during video processing: %v", err))
	}
	s := Summary{Modality: ModalityVideo, Input: input, OK: true, Video: &rep}
	if rep.Empty() {
		s.Lines = []string{NoDetectionsMessage}
		return s
	}
	s.Lines = []string{
		"--- Video Facial Emotion Analysis Complete ---",
		"Dominant emotions found:",
	}
	for _, e := range rep.Entries {
		s.Lines = append(s.Lines, fmt.Sprintf("- %s: %d times", e.Label, e.Count))
	}
	return s
}
