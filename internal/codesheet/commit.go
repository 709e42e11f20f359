package codesheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/study"
)

// readSheet loads a CSV sheet as one map per row, keyed by column name.
func readSheet(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSheetMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening sheet %s: %w", path, err)
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", path)
	}

	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, record := range all[1:] {
		row := map[string]string{}
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CommitCoder reads a coder's edited sheet back and updates that coder's
// comment column in the coding records. Rows whose id is not a known session
// are warned about and skipped. Returns the number of records updated.
func CommitCoder(layout *paths.Layout, s *study.Settings,
	coding map[string]*records.SessionCodingRecord, coder string) (int, error) {

	rows, err := readSheet(layout.CodesheetFile(s.ID, coder))
	if err != nil {
		return 0, err
	}

	col := "coderComments." + coder
	updated := 0
	for _, row := range rows {
		rec, ok := coding[row["id"]]
		if !ok {
			log.Warn().Str("id", row["id"]).Msg("Sheet row does not match any session, ignoring")
			continue
		}
		if rec.CoderComments[coder] != row[col] {
			rec.CoderComments[coder] = row[col]
			updated++
		}
	}
	log.Info().Str("coder", coder).Int("updated", updated).Msg("Coder columns committed")
	return updated, nil
}

// CommitGlobal reads a coder's sheet and commits the requested global fields
// (consent, usable, feedback) for every matched session. Returns the number
// of records changed.
func CommitGlobal(layout *paths.Layout, s *study.Settings,
	coding map[string]*records.SessionCodingRecord, coder string, fields []string) (int, error) {

	for _, f := range fields {
		if !isGlobalField(f) {
			return 0, fmt.Errorf("%q is not a committable global field (one of %v)", f, GlobalFields)
		}
	}

	rows, err := readSheet(layout.CodesheetFile(s.ID, coder))
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, row := range rows {
		rec, ok := coding[row["id"]]
		if !ok {
			log.Warn().Str("id", row["id"]).Msg("Sheet row does not match any session, ignoring")
			continue
		}
		changed := false
		for _, f := range fields {
			v := row[f]
			switch f {
			case "consent":
				if rec.Consent != v {
					rec.Consent = v
					changed = true
				}
			case "usable":
				if rec.Usable != v {
					rec.Usable = v
					changed = true
				}
			case "feedback":
				if rec.Feedback != v {
					rec.Feedback = v
					changed = true
				}
			}
		}
		if changed {
			updated++
		}
	}
	log.Info().Strs("fields", fields).Int("updated", updated).Msg("Global fields committed")
	return updated, nil
}

func isGlobalField(f string) bool {
	for _, g := range GlobalFields {
		if g == f {
			return true
		}
	}
	return false
}
