package importer

import (
	"fmt"
	"strings"
)

// Decode reads fileName's rows into records, choosing the format from the
// extension. Unknown or missing extensions are read as delimited text.
// Any failure rejects the whole file.
func Decode(fileName string, data []byte) ([]RawRecord, error) {
	var (
		records []RawRecord
		err     error
	)

	switch extension(fileName) {
	case "xls", "xlsx":
		records, err = decodeSpreadsheet(data)
	default:
		records, err = decodeDelimited(data)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return records, nil
}

func extension(fileName string) string {
	i := strings.LastIndex(fileName, ".")
	if i < 0 {
		return ""
	}

	return strings.ToLower(fileName[i+1:])
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// headerLabels trims the header row; empty labels mark columns to drop.
func headerLabels(row []string) []string {
	labels := make([]string, len(row))
	for i, h := range row {
		labels[i] = strings.TrimSpace(h)
	}

	return labels
}
