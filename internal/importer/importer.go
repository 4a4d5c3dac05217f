// Package importer turns uploaded CSV and spreadsheet files into validated
// transaction rows, and either previews them or stores them in chunks.
package importer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// ChunkSize is the number of rows stored per database transaction on commit.
	ChunkSize = 300
	// PreviewLimit caps the rows returned by a preview.
	PreviewLimit = 50
)

var (
	ErrDecode      = errors.New("failed to parse file")
	ErrValidation  = errors.New("validation failed")
	ErrPersist     = errors.New("failed to store transactions")
	ErrInvalidMode = errors.New("mode must be preview or import")
)

// RawRecord is one decoded data row keyed by the file's own header labels.
// Values are string, time.Time or nil for an empty cell.
type RawRecord map[string]any

// ValidatedRow is a row that passed validation. Type and Amount are always set.
type ValidatedRow struct {
	Date         *string `json:"date"`
	Type         string  `json:"type"`
	Category     *string `json:"category"`
	Counterparty *string `json:"payee_payer"`
	Description  *string `json:"description"`
	Amount       float64 `json:"amount"`
	Currency     *string `json:"currency"`
}

// ValidationError describes one problem with one row. Row 0 means the whole file.
type ValidationError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Value   any    `json:"value,omitempty"`
}

type Mode string

const (
	ModePreview Mode = "preview"
	ModeImport  Mode = "import"
)

// ParseMode maps the form's action value to a Mode; empty means preview.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePreview:
		return ModePreview, nil
	case ModeImport, "commit":
		return ModeImport, nil
	}

	return "", ErrInvalidMode
}

type Request struct {
	PropertyID uuid.UUID
	FileName   string
	Data       []byte
	Mode       Mode
}

type Result struct {
	Preview []ValidatedRow
	Errors  []ValidationError
	// Valid is the number of rows that passed validation, including those beyond the preview.
	Valid    int
	Inserted int
	Archived string
}

// isoMillis matches the ISO-8601 form produced for validated dates.
const isoMillis = "2006-01-02T15:04:05.000Z"

func formatISO(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
