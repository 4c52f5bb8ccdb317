package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// PersistBundle is what `analyze --out` leaves on disk for one run.
type PersistBundle struct {
	SessionID   string    `json:"session_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Summary     Summary   `json:"summary"`
}

func mkSessionDir(outputsRoot string, now time.Time) (string, string, error) {
	sid := "session_" + now.Format("20060102-150405")
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Persist writes s to <outputsRoot>/session_<timestamp>/summary.json.
func Persist(outputsRoot string, s Summary) (sessionID, path string, err error) {
	now := time.Now()
	sid, outDir, err := mkSessionDir(outputsRoot, now)
	if err != nil {
		return "", "", err
	}

	path = filepath.Join(outDir, "summary.json")
	bundle := PersistBundle{SessionID: sid, GeneratedAt: now, Summary: s}
	if err = writeJSON(path, bundle); err != nil {
		return "", "", err
	}
	return sid, path, nil
}
