package transaction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	CountTransactions(ctx context.Context, propertyID uuid.UUID) (int, error)

	BeginBatch(ctx context.Context) (BatchTx, error)
}

// BatchTx inserts many transactions atomically.
type BatchTx interface {
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	PropertyID   uuid.UUID
	Date         *time.Time
	Type         Type
	Category     *string
	Counterparty *string
	Description  *string
	Amount       decimal.Decimal
	Currency     *string
}

type ListFilter struct {
	PropertyID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if _, ok := ParseType(string(params.Type)); !ok {
		return nil, ErrInvalidType
	}

	tx := paramsToTransaction(params)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Count(ctx context.Context, propertyID uuid.UUID) (int, error) {
	return s.repo.CountTransactions(ctx, propertyID)
}

func (s *Service) Update(ctx context.Context, tx *Transaction) error {
	if _, ok := ParseType(string(tx.Type)); !ok {
		return ErrInvalidType
	}

	return s.repo.UpdateTransaction(ctx, tx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

// CreateBatch inserts all params in a single database transaction.
// Either every row is stored or none is.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	btx, err := s.repo.BeginBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer btx.Rollback()

	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = paramsToTransaction(p)
	}

	if err := btx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := btx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return txs, nil
}

// MonthTotal aggregates a property's income and expenses for one month and currency.
type MonthTotal struct {
	Month    string // YYYY-MM
	Currency string
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// MonthlySummary totals a property's dated transactions per month and currency.
// Amounts in different currencies are kept apart; nothing is converted.
func (s *Service) MonthlySummary(ctx context.Context, propertyID uuid.UUID) ([]MonthTotal, error) {
	txs, err := s.repo.ListTransactions(ctx, ListFilter{PropertyID: &propertyID})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return summarize(txs), nil
}

func summarize(txs []*Transaction) []MonthTotal {
	type key struct {
		month    string
		currency string
	}

	totals := make(map[key]*MonthTotal)

	for _, tx := range txs {
		if tx.Date == nil {
			continue
		}

		k := key{month: tx.Date.UTC().Format("2006-01"), currency: tx.CurrencyCode()}

		t, ok := totals[k]
		if !ok {
			t = &MonthTotal{Month: k.month, Currency: k.currency}
			totals[k] = t
		}

		if tx.Type == TypeIncome {
			t.Income = t.Income.Add(tx.Amount)
		} else {
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}

	out := make([]MonthTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}

		return out[i].Currency < out[j].Currency
	})

	return out
}

func paramsToTransaction(p CreateParams) *Transaction {
	return &Transaction{
		PropertyID:   p.PropertyID,
		Date:         p.Date,
		Type:         p.Type,
		Category:     p.Category,
		Counterparty: p.Counterparty,
		Description:  p.Description,
		Amount:       p.Amount,
		Currency:     p.Currency,
	}
}
