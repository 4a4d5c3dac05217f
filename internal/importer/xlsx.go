package importer

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

func decodeSpreadsheet(data []byte) ([]RawRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows from %q: %w", sheet, err)
	}

	rawRows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read raw rows from %q: %w", sheet, err)
	}

	dates := newDateCells(f, sheet)

	var (
		header  []string
		records []RawRecord
	)

	for r, row := range rows {
		if blankRow(row) {
			continue
		}

		if header == nil {
			header = headerLabels(row)
			continue
		}

		rec := make(RawRecord, len(header))

		for c, h := range header {
			if h == "" {
				continue
			}

			if _, dup := rec[h]; dup {
				continue
			}

			if c >= len(row) || strings.TrimSpace(row[c]) == "" {
				rec[h] = nil
				continue
			}

			rec[h] = row[c]

			if t, ok := dates.value(c, r, cellAt(rawRows, r, c)); ok {
				rec[h] = t
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

func cellAt(rows [][]string, r, c int) string {
	if r >= len(rows) || c >= len(rows[r]) {
		return ""
	}

	return rows[r][c]
}

// dateCells recognises cells whose number format is a date or time and
// converts their serial value. Style lookups are cached by style id.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, styles: make(map[int]bool)}

	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}

	return d
}

func (d *dateCells) value(col, row int, raw string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !d.isDate(col, row) {
		return time.Time{}, false
	}

	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func (d *dateCells) isDate(col, row int) bool {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false
	}

	styleID, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil {
		return false
	}

	if isDate, ok := d.styles[styleID]; ok {
		return isDate
	}

	isDate := false

	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		} else {
			isDate = isBuiltInDateFormat(style.NumFmt)
		}
	}

	d.styles[styleID] = isDate

	return isDate
}

func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}

	return false
}

var (
	quotedOrBracketed = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)
	dateTokens        = regexp.MustCompile(`[dmyhs]`)
)

// isDateFormat reports whether a custom number format renders a date or time.
func isDateFormat(code string) bool {
	code = strings.ToLower(code)
	if code == "general" || code == "@" {
		return false
	}

	return dateTokens.MatchString(quotedOrBracketed.ReplaceAllString(code, ""))
}
