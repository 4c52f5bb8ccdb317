package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edmo-affect/clients"
	"github.com/maastricht-university/edmo-affect/metrics"
	"github.com/maastricht-university/edmo-affect/video"
)

type FrameClassifier interface {
	ClassifyFrame(ctx context.Context, img image.Image) (*clients.FaceResp, error)
}

// Evaluator turns one frame into exactly one FrameOutcome. Nothing the
// classifier does, including panicking, escapes it.
type Evaluator struct {
	c   FrameClassifier
	log logrus.FieldLogger
}

func NewEvaluator(c FrameClassifier, log logrus.FieldLogger) *Evaluator {
	return &Evaluator{c: c, log: log}
}

func (e *Evaluator) Evaluate(ctx context.Context, f video.Frame) (out FrameOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = e.skip(f, fmt.Errorf("classifier panic: %v", r))
		}
		if out.Detected {
			metrics.FrameOutcomesTotal.WithLabelValues("detected").Inc()
		} else {
			metrics.FrameOutcomesTotal.WithLabelValues("not_detected").Inc()
		}
	}()

	resp, err := e.c.ClassifyFrame(ctx, f.Image)
	if err != nil {
		return e.skip(f, err)
	}
	label := ""
	if resp != nil {
		label = strings.TrimSpace(resp.DominantEmotion)
	}
	if label == "" {
		return e.skip(f, errors.New("empty dominant emotion"))
	}
	return Detected(label)
}

func (e *Evaluator) skip(f video.Frame, err error) FrameOutcome {
	e.log.WithField("frame", f.Index).WithError(err).Debug("frame skipped")
	return NotDetected
}
