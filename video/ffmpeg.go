package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Tags         struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideData []struct {
		Rotation int `json:"rotation"`
	} `json:"side_data_list"`
}

// rotation is the display rotation in degrees, normalized to [0, 360).
// The display matrix side data wins over the legacy rotate tag.
func (s probeStream) rotation() int {
	r := 0
	if v, err := strconv.Atoi(strings.TrimSpace(s.Tags.Rotate)); err == nil {
		r = v
	}
	for _, sd := range s.SideData {
		if sd.Rotation != 0 {
			r = sd.Rotation
			break
		}
	}
	return ((r % 360) + 360) % 360
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type streamInfo struct {
	Width, Height int
	FPS           float64
}

// parseProbe picks the first video stream out of ffprobe's JSON output.
func parseProbe(raw string) (streamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return streamInfo{}, fmt.Errorf("probe decode: %w", err)
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return streamInfo{}, fmt.Errorf("video stream has no dimensions (%dx%d)", s.Width, s.Height)
		}
		fps := parseRate(s.AvgFrameRate)
		if fps == 0 {
			fps = parseRate(s.RFrameRate)
		}
		info := streamInfo{Width: s.Width, Height: s.Height, FPS: fps}
		// ffmpeg autorotates on decode, so quarter turns swap the output size.
		if r := s.rotation(); r == 90 || r == 270 {
			info.Width, info.Height = info.Height, info.Width
		}
		return info, nil
	}
	return streamInfo{}, errors.New("no video stream")
}

// parseRate reads ffprobe rationals such as "30000/1001". Anything it cannot
// make sense of, including "0/0", is reported as 0.
func parseRate(r string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(r), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return max(n, 0)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return max(n/d, 0)
}

// FFmpegDecoder streams rgb24 frames out of an ffmpeg child process.
type FFmpegDecoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	info   streamInfo
	buf    []byte
	frames int
	done   bool
}

// NewFFmpegOpener returns an Opener backed by the given ffmpeg binary
// (ffprobe is looked up on PATH for metadata).
func NewFFmpegOpener(binary string) Opener {
	if binary == "" {
		binary = "ffmpeg"
	}
	return func(ctx context.Context, path string) (Decoder, error) {
		return OpenFFmpeg(ctx, binary, path)
	}
}

func OpenFFmpeg(ctx context.Context, binary, path string) (*FFmpegDecoder, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	raw, err := probe(ctx, path)
	if err != nil {
		return nil, err
	}
	info, err := parseProbe(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}

	args := ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{
			"format":   "rawvideo",
			"pix_fmt":  "rgb24",
			"vsync":    "passthrough",
			"loglevel": "error",
		}).
		GetArgs()

	d := &FFmpegDecoder{
		cmd:  exec.CommandContext(ctx, binary, args...),
		info: info,
		buf:  make([]byte, info.Width*info.Height*3),
	}
	d.cmd.Stderr = &d.stderr
	d.cmd.WaitDelay = time.Second
	d.stdout, err = d.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if err := d.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrSourceUnavailable, err)
	}
	return d, nil
}

// probe runs ffprobe within whatever time ctx has left.
func probe(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}
	var timeout time.Duration
	if dl, ok := ctx.Deadline(); ok {
		if timeout = time.Until(dl); timeout <= 0 {
			return "", fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, context.DeadlineExceeded)
		}
	}
	raw, err := ffmpeg.ProbeWithTimeout(path, timeout, nil)
	if cerr := ctx.Err(); cerr != nil {
		return "", fmt.Errorf("%w: ffprobe %s: %w", ErrSourceUnavailable, path, cerr)
	}
	if err != nil {
		return "", fmt.Errorf("%w: ffprobe %s: %v", ErrSourceUnavailable, path, err)
	}
	return raw, nil
}

func (d *FFmpegDecoder) FrameRate() float64 { return d.info.FPS }

func (d *FFmpegDecoder) ReadFrame() (image.Image, error) {
	if err := d.fill(); err != nil {
		return nil, err
	}
	return rgbImage(d.buf, d.info.Width, d.info.Height), nil
}

func (d *FFmpegDecoder) SkipFrame() error {
	return d.fill()
}

// fill reads exactly one frame into d.buf. A truncated trailing frame counts
// as end of stream unless ffmpeg exits with an error.
func (d *FFmpegDecoder) fill() error {
	if d.done {
		return io.EOF
	}
	_, err := io.ReadFull(d.stdout, d.buf)
	if err == nil {
		d.frames++
		return nil
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	d.done = true
	if werr := d.cmd.Wait(); werr != nil {
		return fmt.Errorf("ffmpeg after %d frames: %v: %s", d.frames, werr, strings.TrimSpace(d.stderr.String()))
	}
	return io.EOF
}

func (d *FFmpegDecoder) Close() error {
	if d.done {
		return nil
	}
	d.done = true
	_ = d.stdout.Close()
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	return nil
}

func rgbImage(buf []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(buf) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
