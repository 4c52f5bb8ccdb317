package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edmo_analyses_total",
		Help: "Total number of analysis calls, by modality and status",
	}, []string{"modality", "status"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edmo_analysis_duration_seconds",
		Help:    "Duration of one analysis call",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"modality"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edmo_frames_sampled_total",
		Help: "Total number of video frames sent to the face classifier",
	})

	FrameOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edmo_frame_outcomes_total",
		Help: "Per-frame classification outcomes",
	}, []string{"outcome"})
)
