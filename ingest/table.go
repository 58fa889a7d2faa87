package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jalad-shrimali/cdr-insight/cdr"
	"github.com/jalad-shrimali/cdr-insight/normalize"
)

// headerScan is how many leading rows may be banner text before the header.
const headerScan = 20

var zipMagic = []byte("PK\x03\x04")

// ReadTable decodes an xlsx workbook or a delimited text export into a table.
// Banner lines above the header row are skipped; the target number found in
// them, if any, is returned alongside.
func ReadTable(name string, data []byte) (cdr.Table, string, error) {
	grid, err := readGrid(name, data)
	if err != nil {
		return cdr.Table{}, "", err
	}
	hi := headerRow(grid)
	if hi < 0 {
		return cdr.Table{}, "", nil
	}
	target := bannerNumber(grid[:hi])
	header := dedupe(grid[hi])

	t := cdr.Table{Header: header}
	for _, rec := range grid[hi+1:] {
		if blank(rec) || footer(rec) {
			continue
		}
		row := make(cdr.RawRow, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, target, nil
}

func readGrid(name string, data []byte) ([][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: empty file: %w", name, ErrUnreadable)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if bytes.HasPrefix(data, zipMagic) || ext == ".xlsx" || ext == ".xlsm" {
		return readXLSX(name, data)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("%s: binary content: %w", name, ErrUnreadable)
	}
	return readCSV(data)
}

// readXLSX returns the first sheet that has any content. Cells come back raw
// so date cells keep their serial value.
func readXLSX(name string, data []byte) ([][]string, error) {
	x, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, err, ErrUnreadable)
	}
	defer x.Close()

	for _, sheet := range x.GetSheetList() {
		rows, err := x.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%s: sheet %s: %v: %w", name, sheet, err, ErrUnreadable)
		}
		for _, r := range rows {
			if !blank(r) {
				return rows, nil
			}
		}
	}
	return nil, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var grid [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %v: %w", err, ErrUnreadable)
		}
		grid = append(grid, rec)
	}
	return grid, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab over the
// first few lines.
func sniffDelimiter(data []byte) rune {
	lines := bytes.SplitN(data, []byte("\n"), headerScan+1)
	if len(lines) > headerScan {
		lines = lines[:headerScan]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		n := 0
		for _, l := range lines {
			n += bytes.Count(l, []byte(string(d)))
		}
		if n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

/* ──────────── header row ──────────── */

// headerRow prefers the first row with a known header spelling, then the
// first row with at least two filled cells, then the first non-blank row.
func headerRow(grid [][]string) int {
	limit := min(len(grid), headerScan)
	for i := 0; i < limit; i++ {
		if filled(grid[i]) < 2 {
			continue
		}
		for _, c := range grid[i] {
			if normalize.Known(c) {
				return i
			}
		}
	}
	for i := 0; i < limit; i++ {
		if filled(grid[i]) >= 2 {
			return i
		}
	}
	for i, r := range grid {
		if !blank(r) {
			return i
		}
	}
	return -1
}

// dedupe names empty header cells and suffixes repeated labels so every
// column keeps its own key.
func dedupe(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Column " + strconv.Itoa(i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = h + " (" + strconv.Itoa(n) + ")"
		}
		out[i] = h
	}
	return out
}

/* ──────────── banner target number ──────────── */

var bannerREs = []*regexp.Regexp{
	regexp.MustCompile(`Mobile No '(\d+)'`),                     // airtel
	regexp.MustCompile(`Input Value : (\d+)`),                   // jio
	regexp.MustCompile(`MSISDN : - (\d+)`),                      // vi
	regexp.MustCompile(`(?i)search\s*value[^0-9]*([0-9]{8,15})`), // bsnl
	regexp.MustCompile(`(?i)target\s*(?:no|number)[^0-9]*([0-9]{8,15})`),
}

func bannerNumber(rows [][]string) string {
	for _, r := range rows {
		line := strings.Join(r, " ")
		for _, re := range bannerREs {
			if m := re.FindStringSubmatch(line); len(m) > 1 {
				return m[1]
			}
		}
	}
	return ""
}

/* ──────────── helpers ──────────── */

func filled(r []string) int {
	n := 0
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func blank(r []string) bool { return filled(r) == 0 }

func footer(r []string) bool {
	if filled(r) != 1 {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(strings.Join(r, " ")))
	return strings.HasPrefix(s, "this is system") || strings.Contains(s, "system generated")
}
