package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/maastricht-university/edmo-affect/orchestrator"
)

type page struct {
	Text  *orchestrator.Summary
	Image *orchestrator.Summary
	Audio *orchestrator.Summary
	Video *orchestrator.Summary
}

func (s *Server) render(w http.ResponseWriter, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, p); err != nil {
		s.log.WithError(err).Error("render page")
	}
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, page{})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	text := r.FormValue("text_input")
	if strings.TrimSpace(text) == "" {
		s.home(w, r)
		return
	}
	res, err := s.a.AnalyzeText(r.Context(), text)
	sum := orchestrator.SummarizeText(text, res, err)
	s.render(w, page{Text: &sum})
}

// upload stores the request's file or, when there is nothing usable, sends the
// client back to the index page and reports ok=false.
func (s *Server) upload(w http.ResponseWriter, r *http.Request, allowed map[string]bool) (path, name string, ok bool) {
	path, name, err := saveUpload(r, s.cfg.Paths.Uploads, allowed)
	if err == nil {
		return path, name, true
	}
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, errNoUpload):
		s.home(w, r)
	case errors.As(err, &tooBig):
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
	default:
		s.log.WithError(err).Error("upload failed")
		http.Error(w, "upload failed", http.StatusBadRequest)
	}
	return "", "", false
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	path, name, ok := s.upload(w, r, s.imageExt)
	if !ok {
		return
	}
	res, err := s.a.AnalyzeImage(r.Context(), path)
	sum := orchestrator.SummarizeImage(name, res, err)
	s.render(w, page{Image: &sum})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	path, name, ok := s.upload(w, r, s.mediaExt)
	if !ok {
		return
	}
	res, err := s.a.AnalyzeAudio(r.Context(), path)
	sum := orchestrator.SummarizeAudio(name, res, err)
	s.render(w, page{Audio: &sum})
}

// handleVideo blocks for the whole video; video.timeout bounds it.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	path, name, ok := s.upload(w, r, s.mediaExt)
	if !ok {
		return
	}
	rep, err := s.a.AnalyzeVideo(r.Context(), path)
	sum := orchestrator.SummarizeVideo(name, rep, err)
	s.render(w, page{Video: &sum})
}
