package codesheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/study"
)

// ExportOptions shapes a sheet export.
type ExportOptions struct {
	// Coder selects whose sheet to write.
	Coder string
	// Filter keeps only rows whose column values match every entry.
	Filter map[string]string
	// OmitChildren drops sessions from the listed child profiles (lab test
	// accounts).
	OmitChildren []string
}

// ExportSessions writes the study's coding sheet for one coder: a row per
// session, columns per headerFor. An existing sheet is backed up first.
func ExportSessions(layout *paths.Layout, s *study.Settings, coders []string,
	sessions map[string]records.SessionRecord, coding map[string]*records.SessionCodingRecord,
	opts ExportOptions) error {

	var rows []map[string]string
	for _, key := range sortedRowKeys(coding) {
		sess, ok := sessions[key]
		if !ok {
			continue
		}
		if omitted(sess.ChildID(), opts.OmitChildren) {
			continue
		}
		row := sessionRow(key, sess, coding[key], s, coders)
		if !matchesFilter(row, opts.Filter) {
			continue
		}
		rows = append(rows, row)
	}

	path := layout.CodesheetFile(s.ID, opts.Coder)
	if err := writeSheet(path, headerFor(rows, coders), rows); err != nil {
		return err
	}
	logExported(path, len(rows))
	return nil
}

// ExportAccounts writes the shared account sheet, one row per child profile
// so recruitment emails can be filtered per child.
func ExportAccounts(layout *paths.Layout, accounts map[string]records.Account) error {
	var rows []map[string]string
	for _, id := range sortedRowKeys(accounts) {
		acct := accounts[id]
		base := map[string]string{"id": id, "email": acct.Email()}
		flat := map[string]string{}
		flatten("attributes", acct.Attributes, flat)
		// Profiles expand to their own rows below.
		delete(flat, "attributes.profiles")
		for k, v := range flat {
			if _, taken := base[k]; !taken {
				base[k] = v
			}
		}

		profiles := acct.Profiles()
		if len(profiles) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, p := range profiles {
			row := map[string]string{}
			for k, v := range base {
				row[k] = v
			}
			pflat := map[string]string{}
			flatten("child", p, pflat)
			for k, v := range pflat {
				row[k] = v
			}
			rows = append(rows, row)
		}
	}

	header := []string{"id", "email"}
	seen := map[string]bool{"id": true, "email": true}
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

	path := layout.AccountSheetFile()
	if err := writeSheet(path, header, rows); err != nil {
		return err
	}
	logExported(path, len(rows))
	return nil
}

func writeSheet(path string, header []string, rows []map[string]string) error {
	if err := backupSheet(path); err != nil {
		return fmt.Errorf("backing up sheet %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating sheet %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func matchesFilter(row, filter map[string]string) bool {
	for col, want := range filter {
		if row[col] != want {
			return false
		}
	}
	return true
}

func omitted(childID string, omit []string) bool {
	for _, o := range omit {
		if o == childID {
			return true
		}
	}
	return false
}
