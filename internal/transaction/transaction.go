package transaction

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("transaction not found")
	ErrInvalidType = errors.New("transaction type must be income or expense")
)

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// ParseType matches s case-insensitively against the known transaction types.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome, true
	case TypeExpense:
		return TypeExpense, true
	}

	return "", false
}

// DefaultCurrency is assumed for transactions recorded without a currency.
const DefaultCurrency = "USD"

// Transaction is an income or expense recorded against a property.
type Transaction struct {
	ID           uuid.UUID
	PropertyID   uuid.UUID
	Date         *time.Time
	Type         Type
	Category     *string
	Counterparty *string // payee or payer
	Description  *string
	Amount       decimal.Decimal
	Currency     *string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// CurrencyCode returns the upper-cased currency, falling back to DefaultCurrency.
func (t *Transaction) CurrencyCode() string {
	if t.Currency == nil || strings.TrimSpace(*t.Currency) == "" {
		return DefaultCurrency
	}

	return strings.ToUpper(strings.TrimSpace(*t.Currency))
}
