package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/maastricht-university/edmo-affect/config"
	"github.com/maastricht-university/edmo-affect/orchestrator"
	"github.com/maastricht-university/edmo-affect/video"
)

type fakeAnalyzer struct {
	report orchestrator.Report
	err    error
	paths  []string
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, text string) (*orchestrator.TextResult, error) {
	return &orchestrator.TextResult{Label: "POSITIVE", Score: 0.5}, f.err
}

func (f *fakeAnalyzer) AnalyzeImage(_ context.Context, path string) (*orchestrator.ImageResult, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.ImageResult{Dominant: "surprise", Scores: []orchestrator.Score{{Label: "surprise", Value: 77}}}, nil
}

func (f *fakeAnalyzer) AnalyzeAudio(_ context.Context, path string) (*orchestrator.AudioResult, error) {
	f.paths = append(f.paths, path)
	return &orchestrator.AudioResult{Emotions: []orchestrator.Score{{Label: "neu", Value: 0.9}}}, f.err
}

func (f *fakeAnalyzer) AnalyzeVideo(_ context.Context, path string) (orchestrator.Report, error) {
	f.paths = append(f.paths, path)
	return f.report, f.err
}

func newTestServer(t *testing.T, a Analyzer) (*Server, string) {
	t.Helper()
	c := &cfg.Root{}
	c.Paths.Uploads = filepath.Join(t.TempDir(), "uploads")
	c.Server.MaxUploadMB = 1
	c.Upload.ImageExtensions = []string{"png", "jpg", "jpeg", "gif"}
	c.Upload.MediaExtensions = []string{"mp4", "wav", "mp3", "mov", "avi"}
	log, _ := logtest.NewNullLogger()

	s, err := New(c, a, log)
	require.NoError(t, err)
	return s, c.Paths.Uploads
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	if filename != "" {
		fw, err := w.CreateFormFile("file_input", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &b, w.FormDataContentType()
}

func post(t *testing.T, h http.Handler, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/analyze_video"`)
	assert.NotContains(t, rec.Body.String(), `class="result`)
}

func TestAnalyzeVideoRanked(t *testing.T) {
	a := &fakeAnalyzer{report: orchestrator.Report{Entries: []orchestrator.Entry{{Label: "happy", Count: 2}, {Label: "sad", Count: 2}}}}
	s, dir := newTestServer(t, a)

	rec := post(t, s.Handler(), "/analyze_video", "My Clip.MP4", "fake-video")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "My_Clip.MP4")
	assert.Contains(t, body, "- happy: 2 times<br>")
	assert.Less(t, strings.Index(body, "- happy"), strings.Index(body, "- sad"))

	require.Len(t, a.paths, 1)
	assert.Equal(t, dir, filepath.Dir(a.paths[0]))
	assert.True(t, strings.HasSuffix(a.paths[0], "_My_Clip.MP4"))
	stored, err := os.ReadFile(a.paths[0])
	require.NoError(t, err)
	assert.Equal(t, "fake-video", string(stored))
}

func TestAnalyzeVideoEmptyAndFailure(t *testing.T) {
	a := &fakeAnalyzer{}
	s, _ := newTestServer(t, a)

	rec := post(t, s.Handler(), "/analyze_video", "dark.mov", "x")
	assert.Contains(t, rec.Body.String(), orchestrator.NoDetectionsMessage)

	a.err = errors.Join(video.ErrSourceUnavailable, errors.New("moov atom not found"))
	rec = post(t, s.Handler(), "/analyze_video", "broken.avi", "x")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "An error occurred during video processing")
	assert.NotContains(t, rec.Body.String(), orchestrator.NoDetectionsMessage)
}

func TestUploadRejectionsRedirect(t *testing.T) {
	a := &fakeAnalyzer{}
	s, _ := newTestServer(t, a)
	h := s.Handler()

	for name, rec := range map[string]*httptest.ResponseRecorder{
		"missing file":  post(t, h, "/analyze_video", "", ""),
		"bad extension": post(t, h, "/analyze_video", "notes.txt", "x"),
		"image as clip": post(t, h, "/analyze_image", "clip.mp4", "x"),
		"no extension":  post(t, h, "/analyze_audio", "README", "x"),
	} {
		assert.Equal(t, http.StatusSeeOther, rec.Code, name)
		assert.Equal(t, "/", rec.Header().Get("Location"), name)
	}
	assert.Empty(t, a.paths)
}

func TestAnalyzeImageAndAudio(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{})

	rec := post(t, s.Handler(), "/analyze_image", "face.JPG", "jpeg")
	assert.Contains(t, rec.Body.String(), "Dominant Emotion: surprise")
	assert.Contains(t, rec.Body.String(), "surprise: 77.00%")

	rec = post(t, s.Handler(), "/analyze_audio", "voice.wav", "riff")
	assert.Contains(t, rec.Body.String(), "Emotion: neu, Score: 0.9000")
}

func TestAnalyzeText(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{})
	h := s.Handler()

	form := url.Values{"text_input": {"I love <this>"}}
	req := httptest.NewRequest(http.MethodPost, "/analyze_text", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "Sentiment: POSITIVE (Score: 0.5000)")
	assert.Contains(t, rec.Body.String(), "I love &lt;this&gt;")

	req = httptest.NewRequest(http.MethodPost, "/analyze_text", strings.NewReader("text_input="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAllowedFileAndSecureFilename(t *testing.T) {
	set := extSet([]string{".PNG", "jpg"})
	assert.True(t, allowedFile("a.png", set))
	assert.True(t, allowedFile("a.tar.JPG", set))
	assert.False(t, allowedFile("a.png.exe", set))
	assert.False(t, allowedFile("png", set))

	assert.Equal(t, "passwd", secureFilename("../../etc/passwd"))
	assert.Equal(t, "evil.mp4", secureFilename(`C:\temp\evil.mp4`))
	assert.Equal(t, "my_video_1.mp4", secureFilename("my video (1).mp4"))
	assert.Equal(t, "bashrc", secureFilename(".bashrc"))
}
