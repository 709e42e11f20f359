// Package store persists the pipeline's record maps as binary snapshots.
// Every save first copies the previous snapshot into a timestamped backup
// directory, so a bad run can always be rolled back by hand.
package store

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// timestampLayout names backup directories down to the second; two saves in
// the same second share (and overwrite within) one directory.
const timestampLayout = "060102150405"

// Load decodes the snapshot at path into out, which must be a pointer.
// A missing file is not an error: out is left at its zero/preinitialized
// value so a first run starts from empty state.
func Load(path string, out any) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No snapshot yet, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(out); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return nil
}

// Save writes data as the new snapshot at path. The previous snapshot, if
// any, is first copied to backup/<timestamp>/ beside it; the new snapshot is
// written to a temp file and renamed into place so a crash mid-write never
// leaves a truncated snapshot.
func Save(path string, data any) error {
	if err := backup(path); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Snapshot saved")
	return nil
}

// backup copies the current snapshot at path into a timestamped directory.
func backup(path string) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening snapshot for backup: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(filepath.Dir(path), "backup", time.Now().Format(timestampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, filepath.Base(path)))
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying snapshot to backup: %w", err)
	}
	return nil
}
