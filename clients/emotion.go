package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// ErrNoFace is returned when the face service could not find a face and
// detection was enforced.
var ErrNoFace = errors.New("no face detected")

// --- Face emotion (/analyze-face) ---
type EmoScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
type FaceResp struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Emotion         map[string]float64 `json:"emotion"`
}

// FaceEmotion posts one image to the face service. With enforce false the
// service analyzes the whole image when no face is found instead of failing.
func (h *HTTP) FaceEmotion(ctx context.Context, url, filename string, img []byte, enforce bool) (*FaceResp, error) {
	var out FaceResp
	fields := map[string]string{"enforce_detection": strconv.FormatBool(enforce)}
	err := h.postMultipart(ctx, "emotion", url+"/analyze-face", "image", filename, bytes.NewReader(img), fields, &out)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnprocessableEntity {
			return nil, fmt.Errorf("%w: %s", ErrNoFace, se.Body)
		}
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) FaceEmotionImage(ctx context.Context, url string, img image.Image, enforce bool) (*FaceResp, error) {
	var b bytes.Buffer
	if err := jpeg.Encode(&b, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("emotion encode frame: %w", err)
	}
	return h.FaceEmotion(ctx, url, "frame.jpg", b.Bytes(), enforce)
}

func (h *HTTP) FaceEmotionFile(ctx context.Context, url, path string, enforce bool) (*FaceResp, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return h.FaceEmotion(ctx, url, filepath.Base(path), b, enforce)
}
