package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/edmo-affect/clients"
	cfg "github.com/maastricht-university/edmo-affect/config"
	"github.com/maastricht-university/edmo-affect/orchestrator"
	"github.com/maastricht-university/edmo-affect/server"
	"github.com/maastricht-university/edmo-affect/video"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// app is what every subcommand works with once flags and config are resolved.
type app struct {
	conf     *cfg.Root
	log      *logrus.Logger
	pipeline *orchestrator.Pipeline
	// override replaces pipeline in tests.
	override server.Analyzer
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:           "edmo",
		Short:         "Emotion and sentiment analysis for text, audio, images and video",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: config/$CONFIG_ENV/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override pipeline.log_level")

	root.AddCommand(newServeCmd(a), newAnalyzeCmd(a))
	return root
}

func (a *app) init(opts *rootOptions) error {
	conf, err := cfg.Load(opts.configPath)
	if err != nil {
		return err
	}
	a.conf = conf

	lvl := conf.Pipeline.LogLvl
	if opts.logLevel != "" {
		lvl = opts.logLevel
	}
	a.log, err = newLogger(lvl)
	if err != nil {
		return err
	}

	// Model clients are created once and shared by every analysis.
	models := clients.NewModels(
		clients.NewHTTP(conf.Services.Timeout),
		clients.URLs{
			Emotion:   conf.Services.Emotion.URL,
			Sentiment: conf.Services.Sentiment.URL,
			Audio:     conf.Services.Audio.URL,
		},
		conf.Audio.SampleRate,
	)
	a.pipeline, err = orchestrator.NewPipeline(conf, orchestrator.Deps{
		Frames: models,
		Images: models,
		Text:   models,
		Audio:  models,
		Open:   video.NewFFmpegOpener(conf.Video.FFmpeg),
		Log:    a.log,
	})
	return err
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	return log, nil
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		logrus.WithError(err).Fatal("edmo failed")
	}
}
