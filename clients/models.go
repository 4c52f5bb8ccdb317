package clients

import (
	"context"
	"image"
)

type URLs struct {
	Emotion   string
	Sentiment string
	Audio     string
}

// Models binds the shared HTTP client to the configured service URLs. It is
// built once at startup and handed to the pipeline.
type Models struct {
	h          *HTTP
	urls       URLs
	sampleRate int
}

func NewModels(h *HTTP, urls URLs, sampleRate int) *Models {
	return &Models{h: h, urls: urls, sampleRate: sampleRate}
}

// ClassifyFrame never enforces face detection: frames without a clear face
// must not fail the video run.
func (m *Models) ClassifyFrame(ctx context.Context, img image.Image) (*FaceResp, error) {
	return m.h.FaceEmotionImage(ctx, m.urls.Emotion, img, false)
}

func (m *Models) ClassifyImage(ctx context.Context, path string) (*FaceResp, error) {
	return m.h.FaceEmotionFile(ctx, m.urls.Emotion, path, true)
}

func (m *Models) ClassifyText(ctx context.Context, text string) (*SentimentResp, error) {
	return m.h.Sentiment(ctx, m.urls.Sentiment, text)
}

func (m *Models) ClassifyAudio(ctx context.Context, path string) (*AudioResp, error) {
	return m.h.AudioEmotion(ctx, m.urls.Audio, path, m.sampleRate)
}
