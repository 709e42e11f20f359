// Package codesheet moves coding data between the binary snapshots and the
// CSV sheets coders actually edit. Export flattens session data into one row
// per session; commit reads an edited sheet back, updating only the columns
// a coder owns (plus explicitly committed global fields).
package codesheet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/study"
)

// ErrSheetMissing indicates a commit was requested for a sheet that was
// never exported.
var ErrSheetMissing = errors.New("coding sheet does not exist")

// GlobalFields are the coding fields that may be committed from a sheet for
// everyone, not just as one coder's column.
var GlobalFields = []string{"consent", "usable", "feedback"}

// fixedHeaderStart is the column order every sheet begins with; remaining
// columns follow alphabetized.
var fixedHeaderStart = []string{"id", "child", "created", "consent", "usable", "feedback", "withdrawn"}

// flatten renders nested session attributes as dot-joined scalar columns.
func flatten(prefix string, v any, out map[string]string) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(prefix+"."+k, x[k], out)
		}
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		out[prefix] = strings.Join(parts, "; ")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(x)
	}
}

// shapeKey applies the study's field shaping: excluded keys are dropped
// (reported as ok=false) and keys ending with an include entry collapse to
// that ending so the same survey answer lands in one column across sessions
// regardless of its frame ordinal.
func shapeKey(key string, s *study.Settings) (string, bool) {
	for _, ex := range s.ExcludeFields {
		if strings.HasSuffix(key, ex) {
			return "", false
		}
	}
	for _, inc := range s.IncludeFields {
		if strings.HasSuffix(key, inc) {
			return inc, true
		}
	}
	return key, true
}

// sessionRow builds the flattened export row for one session.
func sessionRow(key string, sess records.SessionRecord, coding *records.SessionCodingRecord,
	s *study.Settings, coders []string) map[string]string {

	row := map[string]string{
		"id":       key,
		"child":    sess.ChildID(),
		"consent":  coding.Consent,
		"usable":   coding.Usable,
		"feedback": coding.Feedback,
	}
	if created, ok := sess.Attributes["createdOn"].(string); ok {
		row["created"] = created
	}
	switch {
	case coding.Withdrawn == nil:
		row["withdrawn"] = ""
	case *coding.Withdrawn:
		row["withdrawn"] = "true"
	default:
		row["withdrawn"] = "false"
	}

	row["nVideosExpected"] = fmt.Sprint(len(coding.VideosExpected))
	found := 0
	for _, group := range coding.VideosFound {
		if len(group) > 0 {
			found++
		}
	}
	row["nVideosFound"] = fmt.Sprint(found)

	for _, coder := range coders {
		row["coderComments."+coder] = coding.CoderComments[coder]
	}

	flat := map[string]string{}
	flatten("attributes", sess.Attributes, flat)
	for k, v := range flat {
		shaped, ok := shapeKey(k, s)
		if !ok {
			continue
		}
		if _, taken := row[shaped]; !taken {
			row[shaped] = v
		}
	}
	return row
}

// headerFor orders the union of row columns: the fixed start, then coder
// columns, then everything else alphabetized.
func headerFor(rows []map[string]string, coders []string) []string {
	seen := map[string]bool{}
	var header []string
	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			header = append(header, col)
		}
	}
	for _, col := range fixedHeaderStart {
		add(col)
	}
	for _, coder := range coders {
		add("coderComments." + coder)
	}

	var rest []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				rest = append(rest, col)
			}
		}
	}
	sort.Strings(rest)
	header = append(header, rest...)
	return header
}

// backupSheet copies an existing sheet into backup/<timestamp>/ beside it.
func backupSheet(path string) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	dir := filepath.Join(filepath.Dir(path), "backup", time.Now().Format("060102150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(dir, filepath.Base(path)))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func sortedRowKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func logExported(path string, rows int) {
	log.Info().Str("sheet", path).Int("rows", rows).Msg("Sheet written")
}
