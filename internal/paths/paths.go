// Package paths centralizes the on-disk layout of the toolkit: where raw
// videos, per-session artifacts, batches, coding sheets, and data snapshots
// live, plus the naming conventions for data files and session keys.
//
// All directories come from environment variables so the same binary can be
// pointed at different volumes (the raw video drive vs. a scratch disk).
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout holds the resolved directory layout for one run.
type Layout struct {
	VideoDir   string // raw uploaded clips (.flv)
	SessionDir string // per-session processed clips and concatenated artifacts
	BatchDir   string // batch artifacts
	DataDir    string // gob snapshots + backups
	CodingDir  string // CSV coding sheets
}

// FromEnv builds a Layout from LOOKIT_*_DIR environment variables and
// creates any directories that do not exist yet.
func FromEnv() (*Layout, error) {
	l := &Layout{
		VideoDir:   os.Getenv("LOOKIT_VIDEO_DIR"),
		SessionDir: os.Getenv("LOOKIT_SESSION_DIR"),
		BatchDir:   os.Getenv("LOOKIT_BATCH_DIR"),
		DataDir:    os.Getenv("LOOKIT_DATA_DIR"),
		CodingDir:  os.Getenv("LOOKIT_CODING_DIR"),
	}
	for name, dir := range map[string]string{
		"LOOKIT_VIDEO_DIR":   l.VideoDir,
		"LOOKIT_SESSION_DIR": l.SessionDir,
		"LOOKIT_BATCH_DIR":   l.BatchDir,
		"LOOKIT_DATA_DIR":    l.DataDir,
		"LOOKIT_CODING_DIR":  l.CodingDir,
	} {
		if dir == "" {
			return nil, fmt.Errorf("%s is not set", name)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return l, nil
}

// VideoDataFile is the snapshot of raw-video records, shared across studies.
func (l *Layout) VideoDataFile() string {
	return filepath.Join(l.DataDir, "video_data.bin")
}

// AccountDataFile is the snapshot of account records, shared across studies.
func (l *Layout) AccountDataFile() string {
	return filepath.Join(l.DataDir, "accounts.bin")
}

// SessionDataFile is the snapshot of fetched session records for one study.
func (l *Layout) SessionDataFile(studyID string) string {
	return filepath.Join(l.DataDir, "session_data_"+studyID+".bin")
}

// CodingDataFile is the snapshot of coding records for one study.
func (l *Layout) CodingDataFile(studyID string) string {
	return filepath.Join(l.DataDir, "coding_data_"+studyID+".bin")
}

// BatchDataFile is the snapshot of batch records for one study.
func (l *Layout) BatchDataFile(studyID string) string {
	return filepath.Join(l.DataDir, "batch_data_"+studyID+".bin")
}

// CodesheetFile is the CSV coding sheet for one study and coder.
func (l *Layout) CodesheetFile(studyID, coder string) string {
	return filepath.Join(l.CodingDir, studyID+"_"+coder+".csv")
}

// AccountSheetFile is the CSV export of all account data.
func (l *Layout) AccountSheetFile() string {
	return filepath.Join(l.CodingDir, "accounts.csv")
}

// SentLogFile is the append-only log of already-sent notification emails.
func (l *Layout) SentLogFile() string {
	return filepath.Join(l.DataDir, "sent.log")
}

const sessionKeyPrefix = "experimenter.session"

// SessionKey composes the canonical session key used to index coding data.
// Example: experimenter.session<studyId>s.<sessionId>
func SessionKey(studyID, sessionID string) string {
	return sessionKeyPrefix + studyID + "s." + sessionID
}

// ParseSessionKey splits a session key back into study and session ids.
func ParseSessionKey(key string) (studyID, sessionID string, err error) {
	if !strings.HasPrefix(key, sessionKeyPrefix) {
		return "", "", fmt.Errorf("not a session key: %q", key)
	}
	rest := key[len(sessionKeyPrefix):]
	dot := strings.Index(rest, ".")
	if dot < 1 || !strings.HasSuffix(rest[:dot], "s") {
		return "", "", fmt.Errorf("not a session key: %q", key)
	}
	return rest[:dot-1], rest[dot+1:], nil
}

// ListVideos returns the raw .flv filenames currently in the video directory.
func (l *Layout) ListVideos() ([]string, error) {
	entries, err := os.ReadDir(l.VideoDir)
	if err != nil {
		return nil, fmt.Errorf("read video dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".flv") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ListBatchFiles returns the artifact filenames currently in the batch directory.
func (l *Layout) ListBatchFiles() ([]string, error) {
	entries, err := os.ReadDir(l.BatchDir)
	if err != nil {
		return nil, fmt.Errorf("read batch dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".mp4", ".flv":
			names = append(names, e.Name())
		}
	}
	return names, nil
}
