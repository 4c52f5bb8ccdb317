package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// errNoUpload covers a missing form part, an empty filename and a disallowed
// extension; the handler answers all three with a redirect.
var errNoUpload = errors.New("no acceptable upload")

func extSet(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = true
	}
	return m
}

// allowedFile checks the last extension of name, case-insensitively.
func allowedFile(name string, allowed map[string]bool) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	return allowed[strings.ToLower(name[i+1:])]
}

// secureFilename reduces a client supplied name to a safe base name.
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.TrimLeft(b.String(), "._")
}

// saveUpload stores the file_input part under dir with a unique prefix and
// returns the stored path and the sanitized display name.
func saveUpload(r *http.Request, dir string, allowed map[string]bool) (string, string, error) {
	f, hdr, err := r.FormFile("file_input")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", "", errNoUpload
		}
		return "", "", err
	}
	defer f.Close()

	name := secureFilename(hdr.Filename)
	if name == "" || !allowedFile(name, allowed) {
		return "", "", errNoUpload
	}

	path := filepath.Join(dir, uuid.NewString()+"_"+name)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	return path, name, nil
}
