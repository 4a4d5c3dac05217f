package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/propledger/internal/logging"
	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=store_mock.go -package=importer

// Store persists one chunk of rows atomically.
type Store interface {
	CreateBatch(ctx context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error)
}

// Archiver keeps a copy of a committed upload and returns where it was put.
type Archiver interface {
	Archive(ctx context.Context, propertyID uuid.UUID, fileName string, data []byte) (string, error)
}

type Service struct {
	store    Store
	archiver Archiver
}

// NewService builds the import orchestrator. archiver may be nil.
func NewService(store Store, archiver Archiver) *Service {
	return &Service{store: store, archiver: archiver}
}

// Run decodes and validates req.Data, then previews or stores the rows.
//
// The returned Result is non-nil whenever decoding was attempted, also
// alongside ErrDecode, ErrValidation and ErrPersist, so callers can report
// row errors and partial insert counts.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Mode != ModePreview && req.Mode != ModeImport {
		return nil, ErrInvalidMode
	}

	logger := logging.WithFields(ctx,
		"property_id", req.PropertyID,
		"file", req.FileName,
		"mode", req.Mode,
	)

	records, err := Decode(req.FileName, req.Data)
	if err != nil {
		logger.Warn("import file could not be decoded", "error", err)

		return &Result{Errors: []ValidationError{{Row: 0, Message: err.Error()}}}, err
	}

	rows, errs := ValidateAll(records)

	res := &Result{Errors: errs, Valid: len(rows)}
	if res.Errors == nil {
		res.Errors = []ValidationError{}
	}

	logger.Info("import file validated", "records", len(records), "valid", len(rows), "errors", len(errs))

	if req.Mode == ModePreview {
		res.Preview = rows[:min(len(rows), PreviewLimit)]
		if res.Preview == nil {
			res.Preview = []ValidatedRow{}
		}

		return res, nil
	}

	if len(errs) > 0 {
		return res, ErrValidation
	}

	params, err := toCreateParams(req.PropertyID, rows)
	if err != nil {
		return res, err
	}

	for start := 0; start < len(params); start += ChunkSize {
		end := min(start+ChunkSize, len(params))

		if _, err := s.store.CreateBatch(ctx, params[start:end]); err != nil {
			logger.Error("import chunk failed", "chunk_start", start, "inserted", res.Inserted, "error", err)

			return res, fmt.Errorf("%w: rows %d-%d: %w", ErrPersist, start+2, end+1, err)
		}

		res.Inserted += end - start
	}

	logger.Info("import committed", "inserted", res.Inserted)

	if s.archiver != nil && res.Inserted > 0 {
		key, err := s.archiver.Archive(ctx, req.PropertyID, req.FileName, req.Data)
		if err != nil {
			logger.Warn("failed to archive import file", "error", err)
		} else {
			res.Archived = key
		}
	}

	return res, nil
}

func toCreateParams(propertyID uuid.UUID, rows []ValidatedRow) ([]transaction.CreateParams, error) {
	params := make([]transaction.CreateParams, len(rows))

	for i, row := range rows {
		var date *time.Time

		if row.Date != nil {
			t, err := time.Parse(isoMillis, *row.Date)
			if err != nil {
				return nil, fmt.Errorf("row date %q: %w", *row.Date, err)
			}

			date = &t
		}

		params[i] = transaction.CreateParams{
			PropertyID:   propertyID,
			Date:         date,
			Type:         transaction.Type(row.Type),
			Category:     row.Category,
			Counterparty: row.Counterparty,
			Description:  row.Description,
			Amount:       decimal.NewFromFloat(row.Amount),
			Currency:     row.Currency,
		}
	}

	return params, nil
}

// IsClientError reports whether err came from the uploaded file rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidMode)
}
