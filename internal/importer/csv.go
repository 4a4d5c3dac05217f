package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/propledger/internal/encoding"
)

var delimiters = []rune{',', ';', '\t', '|'}

func decodeDelimited(data []byte) ([]RawRecord, error) {
	text, _, err := encoding.ToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		header  []string
		records []RawRecord
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		if blankRow(row) {
			continue
		}

		if header == nil {
			header = headerLabels(row)
			continue
		}

		rec := make(RawRecord, len(header))

		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}

			if _, dup := rec[h]; dup {
				continue
			}

			rec[h] = row[i]
		}

		records = append(records, rec)
	}

	return records, nil
}

// sniffDelimiter picks the candidate appearing most often, outside quotes,
// on the first non-blank line. Ties and no match fall back to a comma.
func sniffDelimiter(text []byte) rune {
	line := firstLine(text)

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false

	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}

		if !inQuotes {
			counts[r]++
		}
	}

	best := ','
	for _, d := range delimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}

	return best
}

func firstLine(text []byte) []byte {
	for len(text) > 0 {
		line := text
		if i := bytes.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			text = nil
		}

		if len(bytes.TrimSpace(line)) > 0 {
			return line
		}
	}

	return nil
}
