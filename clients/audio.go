package clients

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
)

// --- Audio tone emotion (/classify-audio) ---
type AudioResp struct {
	Emotions []EmoScore `json:"emotions"`
}

// AudioEmotion uploads a recording; the service resamples it to sampleRate
// before classification.
func (h *HTTP) AudioEmotion(ctx context.Context, url, path string, sampleRate int) (*AudioResp, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	fields := map[string]string{}
	if sampleRate > 0 {
		fields["sample_rate"] = strconv.Itoa(sampleRate)
	}

	var out AudioResp
	if err := h.postMultipart(ctx, "audio", url+"/classify-audio", "file", filepath.Base(path), fd, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
