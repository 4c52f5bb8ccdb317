package orchestrator

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edmo-affect/clients"
	cfg "github.com/maastricht-university/edmo-affect/config"
	"github.com/maastricht-university/edmo-affect/video"
)

// step scripts one ClassifyFrame call: a label, an error, or a panic.
type step struct {
	label string
	err   error
	panic bool
}

var errNoFace = errors.New("face could not be detected")

func label(l string) step { return step{label: l} }
func fail(err error) step { return step{err: err} }

type scriptedFrames struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (s *scriptedFrames) ClassifyFrame(ctx context.Context, img image.Image) (*clients.FaceResp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.steps) {
		s.calls++
		return nil, errNoFace
	}
	st := s.steps[s.calls]
	s.calls++
	if st.panic {
		panic("backend crashed")
	}
	if st.err != nil {
		return nil, st.err
	}
	return &clients.FaceResp{DominantEmotion: st.label}, nil
}

type memDecoder struct {
	fps    float64
	total  int
	failAt int
	read   int
	closed int
}

func (d *memDecoder) FrameRate() float64 { return d.fps }

func (d *memDecoder) ReadFrame() (image.Image, error) {
	if d.failAt > 0 && d.read == d.failAt {
		return nil, errors.New("invalid NAL unit")
	}
	if d.read >= d.total {
		return nil, io.EOF
	}
	d.read++
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (d *memDecoder) Close() error {
	d.closed++
	return nil
}

func openerFor(d *memDecoder) video.Opener {
	return func(context.Context, string) (video.Decoder, error) { return d, nil }
}

type fakeModels struct {
	face  *clients.FaceResp
	text  *clients.SentimentResp
	audio *clients.AudioResp
	err   error
	path  string
}

func (f *fakeModels) ClassifyImage(_ context.Context, path string) (*clients.FaceResp, error) {
	f.path = path
	return f.face, f.err
}

func (f *fakeModels) ClassifyText(_ context.Context, text string) (*clients.SentimentResp, error) {
	return f.text, f.err
}

func (f *fakeModels) ClassifyAudio(_ context.Context, path string) (*clients.AudioResp, error) {
	f.path = path
	return f.audio, f.err
}

func testConfig() *cfg.Root {
	c := &cfg.Root{}
	c.Server.MaxUploadMB = 1
	return c
}

func testLogger() (*logrus.Logger, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

type nilFrames struct{}

func (nilFrames) ClassifyFrame(context.Context, image.Image) (*clients.FaceResp, error) {
	return nil, nil
}

// newTestPipeline fills every classifier the test does not care about with an
// inert fake.
func newTestPipeline(t *testing.T, c *cfg.Root, d Deps) *Pipeline {
	t.Helper()
	idle := &fakeModels{}
	if d.Frames == nil {
		d.Frames = &scriptedFrames{}
	}
	if d.Images == nil {
		d.Images = idle
	}
	if d.Text == nil {
		d.Text = idle
	}
	if d.Audio == nil {
		d.Audio = idle
	}
	if d.Log == nil {
		d.Log, _ = testLogger()
	}
	p, err := NewPipeline(c, d)
	require.NoError(t, err)
	return p
}
