package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/maastricht-university/edmo-affect/clients"
	cfg "github.com/maastricht-university/edmo-affect/config"
	"github.com/maastricht-university/edmo-affect/metrics"
	"github.com/maastricht-university/edmo-affect/video"
)

type ImageClassifier interface {
	ClassifyImage(ctx context.Context, path string) (*clients.FaceResp, error)
}

type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (*clients.SentimentResp, error)
}

type AudioClassifier interface {
	ClassifyAudio(ctx context.Context, path string) (*clients.AudioResp, error)
}

// Deps are the collaborators a Pipeline calls out to. They are built once at
// startup; *clients.Models satisfies every classifier interface.
type Deps struct {
	Frames FrameClassifier
	Images ImageClassifier
	Text   TextClassifier
	Audio  AudioClassifier
	Open   video.Opener
	Log    logrus.FieldLogger
}

type Pipeline struct {
	cfg  *cfg.Root
	deps Deps
	eval *Evaluator
	log  logrus.FieldLogger
}

// ErrMissingDependency is returned by NewPipeline when a classifier is not wired.
var ErrMissingDependency = errors.New("pipeline dependency missing")

func (d Deps) validate() error {
	var errs []error
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"frame classifier", d.Frames == nil},
		{"image classifier", d.Images == nil},
		{"text classifier", d.Text == nil},
		{"audio classifier", d.Audio == nil},
	} {
		if dep.missing {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDependency, dep.name))
		}
	}
	return errors.Join(errs...)
}

// NewPipeline checks that every classifier is present; Log and Open have
// defaults.
func NewPipeline(c *cfg.Root, d Deps) (*Pipeline, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Open == nil {
		d.Open = video.NewFFmpegOpener(c.Video.FFmpeg)
	}
	return &Pipeline{cfg: c, deps: d, eval: NewEvaluator(d.Frames, d.Log), log: d.Log}, nil
}

var tracer = otel.Tracer("github.com/maastricht-university/edmo-affect/orchestrator")

func finish(span trace.Span, modality, status string, start time.Time, err error) {
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.AnalysesTotal.WithLabelValues(modality, status).Inc()
	metrics.AnalysisDuration.WithLabelValues(modality).Observe(time.Since(start).Seconds())
	span.End()
}

// AnalyzeVideo samples path at roughly one frame per second, classifies each
// sample and ranks the detected emotions. Only a video that cannot be opened
// or decoded fails; unanalyzable frames are skipped. Exceeding video.timeout
// is reported the same way as an undecodable source.
func (p *Pipeline) AnalyzeVideo(ctx context.Context, path string) (rep Report, err error) {
	ctx, span := tracer.Start(ctx, "Pipeline.AnalyzeVideo", trace.WithAttributes(attribute.String("video.path", path)))
	start := time.Now()
	status := "ok"
	defer func() { finish(span, "video", status, start, err) }()

	if t := p.cfg.Video.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	log := p.log.WithField("path", path)

	src, err := video.Open(ctx, p.deps.Open, path)
	if err != nil {
		log.WithError(err).Error("cannot open video")
		return Report{}, err
	}
	defer src.Close()

	log.WithField("stride", src.Stride()).Debug("sampling video")
	span.SetAttributes(attribute.Int("video.stride", src.Stride()))

	aborted := func() error {
		cerr := ctx.Err()
		if cerr == nil {
			return nil
		}
		err := fmt.Errorf("%w: %s: %v", video.ErrSourceUnavailable, path, cerr)
		log.WithError(err).Error("video analysis aborted")
		return err
	}

	tally := NewTally()
	sampled := 0
	for {
		if err = aborted(); err != nil {
			return Report{}, err
		}
		if limit := p.cfg.Video.MaxFrames; limit > 0 && sampled >= limit {
			log.WithField("max_frames", limit).Warn("frame limit reached, ignoring rest of video")
			break
		}
		f, nerr := src.Next()
		if errors.Is(nerr, io.EOF) {
			break
		}
		if nerr != nil {
			err = nerr
			log.WithError(err).Error("video decode failed")
			return Report{}, err
		}
		sampled++
		metrics.FramesSampledTotal.Inc()
		tally.Add(p.eval.Evaluate(ctx, f))
	}
	// A killed decoder can look like a clean end of stream.
	if err = aborted(); err != nil {
		return Report{}, err
	}

	rep = Format(tally)
	rep.Stride = src.Stride()
	rep.SampledFrames = sampled
	if rep.Empty() {
		status = "empty"
	}
	span.SetAttributes(attribute.Int("video.sampled_frames", sampled), attribute.Int("video.detections", tally.Total()))
	log.WithFields(logrus.Fields{
		"frames_read": src.FramesRead(),
		"sampled":     sampled,
		"detections":  tally.Total(),
		"labels":      tally.Len(),
	}).Info("video analyzed")
	return rep, nil
}

func (p *Pipeline) AnalyzeText(ctx context.Context, text string) (res *TextResult, err error) {
	ctx, span := tracer.Start(ctx, "Pipeline.AnalyzeText")
	defer func(start time.Time) { finish(span, "text", "ok", start, err) }(time.Now())

	out, err := p.deps.Text.ClassifyText(ctx, text)
	if err != nil {
		p.log.WithError(err).Warn("text analysis failed")
		return nil, err
	}
	return &TextResult{Label: out.Label, Score: out.Score}, nil
}

func (p *Pipeline) AnalyzeImage(ctx context.Context, path string) (res *ImageResult, err error) {
	ctx, span := tracer.Start(ctx, "Pipeline.AnalyzeImage", trace.WithAttributes(attribute.String("image.path", path)))
	defer func(start time.Time) { finish(span, "image", "ok", start, err) }(time.Now())

	out, err := p.deps.Images.ClassifyImage(ctx, path)
	if err != nil {
		p.log.WithField("path", path).WithError(err).Warn("image analysis failed")
		return nil, err
	}
	dominant := strings.TrimSpace(out.DominantEmotion)
	if dominant == "" {
		return nil, errors.New("emotion service returned no dominant emotion")
	}
	res = &ImageResult{Dominant: dominant}
	for label, v := range out.Emotion {
		res.Scores = append(res.Scores, Score{Label: label, Value: v})
	}
	sort.Slice(res.Scores, func(i, j int) bool { return res.Scores[i].Label < res.Scores[j].Label })
	return res, nil
}

func (p *Pipeline) AnalyzeAudio(ctx context.Context, path string) (res *AudioResult, err error) {
	ctx, span := tracer.Start(ctx, "Pipeline.AnalyzeAudio", trace.WithAttributes(attribute.String("audio.path", path)))
	defer func(start time.Time) { finish(span, "audio", "ok", start, err) }(time.Now())

	out, err := p.deps.Audio.ClassifyAudio(ctx, path)
	if err != nil {
		p.log.WithField("path", path).WithError(err).Warn("audio analysis failed")
		return nil, err
	}
	res = &AudioResult{Emotions: make([]Score, 0, len(out.Emotions))}
	for _, e := range out.Emotions {
		res.Emotions = append(res.Emotions, Score{Label: e.Label, Value: e.Score})
	}
	return res, nil
}
