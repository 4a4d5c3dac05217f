package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

type transactionResponse struct {
	ID           uuid.UUID        `json:"id"`
	PropertyID   uuid.UUID        `json:"property_id"`
	Date         *string          `json:"date"`
	Type         transaction.Type `json:"type"`
	Category     *string          `json:"category"`
	Counterparty *string          `json:"payee_payer"`
	Description  *string          `json:"description"`
	Amount       decimal.Decimal  `json:"amount"`
	Currency     string           `json:"currency"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
}

type pageResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
	Total        int                   `json:"total"`
	TotalPages   int                   `json:"total_pages"`
}

type monthResponse struct {
	Month    string          `json:"month"`
	Currency string          `json:"currency"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:           tx.ID,
		PropertyID:   tx.PropertyID,
		Type:         tx.Type,
		Category:     tx.Category,
		Counterparty: tx.Counterparty,
		Description:  tx.Description,
		Amount:       tx.Amount,
		Currency:     tx.CurrencyCode(),
		CreatedAt:    tx.CreatedAt,
		UpdatedAt:    tx.UpdatedAt,
	}

	if tx.Date != nil {
		d := tx.Date.UTC().Format(time.DateOnly)
		resp.Date = &d
	}

	return resp
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

func toSummaryResponse(totals []transaction.MonthTotal) []monthResponse {
	resp := make([]monthResponse, len(totals))
	for i, t := range totals {
		resp[i] = monthResponse{
			Month:    t.Month,
			Currency: t.Currency,
			Income:   t.Income,
			Expenses: t.Expenses,
			Net:      t.Income.Sub(t.Expenses),
		}
	}

	return resp
}
