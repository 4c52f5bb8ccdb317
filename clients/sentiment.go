package clients

import (
	"context"
)

// --- Text sentiment (/sentiment) ---
type SentimentReq struct {
	Text string `json:"text"`
}
type SentimentResp struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (h *HTTP) Sentiment(ctx context.Context, url, text string) (*SentimentResp, error) {
	var out SentimentResp
	if err := h.postJSON(ctx, "sentiment", url+"/sentiment", SentimentReq{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
