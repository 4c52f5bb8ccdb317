package cmd

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/edmo-affect/orchestrator"
	"github.com/maastricht-university/edmo-affect/server"
)

type analyzeOptions struct {
	format string
	out    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}
	c := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a single input and print the result",
	}
	c.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json, yaml or html")
	c.PersistentFlags().StringVar(&opts.out, "out", "", "also write a summary bundle under this directory")

	run := func(fn func(cmd *cobra.Command, an server.Analyzer, arg string) orchestrator.Summary) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format); err != nil {
				return err
			}
			s := fn(cmd, a.analyzer(), strings.Join(args, " "))
			return a.emit(cmd.OutOrStdout(), opts, s)
		}
	}

	c.AddCommand(
		&cobra.Command{
			Use:   "video <path>",
			Short: "Rank the facial emotions found in a video, sampling one frame per second",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, an server.Analyzer, path string) orchestrator.Summary {
				rep, err := an.AnalyzeVideo(cmd.Context(), path)
				return orchestrator.SummarizeVideo(path, rep, err)
			}),
		},
		&cobra.Command{
			Use:   "image <path>",
			Short: "Classify the facial emotion in a still image",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, an server.Analyzer, path string) orchestrator.Summary {
				res, err := an.AnalyzeImage(cmd.Context(), path)
				return orchestrator.SummarizeImage(path, res, err)
			}),
		},
		&cobra.Command{
			Use:   "audio <path>",
			Short: "Classify the emotion carried by the tone of a recording",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, an server.Analyzer, path string) orchestrator.Summary {
				res, err := an.AnalyzeAudio(cmd.Context(), path)
				return orchestrator.SummarizeAudio(path, res, err)
			}),
		},
		&cobra.Command{
			Use:   "text <text>...",
			Short: "Classify the sentiment of a piece of text",
			Args:  cobra.MinimumNArgs(1),
			RunE: run(func(cmd *cobra.Command, an server.Analyzer, text string) orchestrator.Summary {
				res, err := an.AnalyzeText(cmd.Context(), text)
				return orchestrator.SummarizeText(text, res, err)
			}),
		},
	)
	return c
}

func (a *app) analyzer() server.Analyzer {
	if a.override != nil {
		return a.override
	}
	return a.pipeline
}

func checkFormat(f string) error {
	switch f {
	case "text", "json", "yaml", "html":
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json, yaml or html)", f)
}

func (a *app) emit(w io.Writer, opts *analyzeOptions, s orchestrator.Summary) error {
	if err := render(w, opts.format, s); err != nil {
		return err
	}
	if opts.out != "" {
		sid, path, err := orchestrator.Persist(opts.out, s)
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		a.log.WithField("session", sid).WithField("path", path).Info("summary written")
	}
	if !s.OK {
		return fmt.Errorf("%s analysis failed", s.Modality)
	}
	return nil
}

func render(w io.Writer, format string, s orchestrator.Summary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "html":
		esc := make([]string, len(s.Lines))
		for i, l := range s.Lines {
			esc[i] = html.EscapeString(l)
		}
		_, err := fmt.Fprintln(w, strings.Join(esc, "<br>")+"<br>")
		return err
	default:
		_, err := fmt.Fprintln(w, strings.Join(s.Lines, "\n"))
		return err
	}
}
