package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/propledger/internal/transaction"
	"github.com/MrJamesThe3rd/propledger/internal/transaction/store"
)

var txColumns = []string{
	"id", "property_id", "date", "type", "category", "payee_payer",
	"description", "amount", "currency", "created_at", "updated_at",
}

func setupMockDB(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

func TestStore_GetTransaction(t *testing.T) {
	s, mock := setupMockDB(t)

	id := uuid.New()
	propertyID := uuid.New()
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions t`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(txColumns).
			AddRow(id.String(), propertyID.String(), date, "income", "Rent", "Tenant A", nil, "1200.50", "USD", now, nil))

	got, err := s.GetTransaction(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, propertyID, got.PropertyID)
	assert.Equal(t, transaction.TypeIncome, got.Type)
	assert.True(t, decimal.RequireFromString("1200.50").Equal(got.Amount))
	require.NotNil(t, got.Date)
	assert.True(t, date.Equal(*got.Date))
	assert.Equal(t, "Tenant A", *got.Counterparty)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetTransaction_NotFound(t *testing.T) {
	s, mock := setupMockDB(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions t`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(txColumns))

	got, err := s.GetTransaction(context.Background(), id)
	assert.ErrorIs(t, err, transaction.ErrNotFound)
	assert.Nil(t, got)
}

func TestStore_ListTransactions_PropertyPage(t *testing.T) {
	s, mock := setupMockDB(t)

	propertyID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`AND t.property_id = \$1 ORDER BY t.date DESC NULLS LAST, t.created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(propertyID, 10, 20).
		WillReturnRows(sqlmock.NewRows(txColumns).
			AddRow(uuid.NewString(), propertyID.String(), nil, "expense", nil, nil, nil, "45", nil, now, nil).
			AddRow(uuid.NewString(), propertyID.String(), nil, "income", nil, nil, nil, "900", nil, now, nil))

	got, err := s.ListTransactions(context.Background(), transaction.ListFilter{
		PropertyID: &propertyID,
		Limit:      10,
		Offset:     20,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, transaction.TypeExpense, got[0].Type)
	assert.Nil(t, got[0].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CountTransactions(t *testing.T) {
	s, mock := setupMockDB(t)

	propertyID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM transactions WHERE property_id = $1`)).
		WithArgs(propertyID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(37))

	n, err := s.CountTransactions(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, 37, n)
}

func TestStore_DeleteTransaction_NotFound(t *testing.T) {
	s, mock := setupMockDB(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM transactions WHERE id = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteTransaction(context.Background(), id)
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestStore_BatchCreateTransactions(t *testing.T) {
	s, mock := setupMockDB(t)

	propertyID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	now := time.Now()

	args := make([]any, 16)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()), ($9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW()) RETURNING id, created_at, updated_at`)).
		WithArgs(args...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(ids[0].String(), now, now).
			AddRow(ids[1].String(), now, now))
	mock.ExpectCommit()

	btx, err := s.BeginBatch(context.Background())
	require.NoError(t, err)

	txs := []*transaction.Transaction{
		{PropertyID: propertyID, Type: transaction.TypeIncome, Amount: decimal.NewFromInt(900)},
		{PropertyID: propertyID, Type: transaction.TypeExpense, Amount: decimal.NewFromInt(45)},
	}

	require.NoError(t, btx.CreateTransactions(context.Background(), txs))
	require.NoError(t, btx.Commit())
	_ = btx.Rollback()

	assert.Equal(t, ids[0], txs[0].ID)
	assert.Equal(t, ids[1], txs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BatchCreateTransactions_Fails(t *testing.T) {
	s, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	btx, err := s.BeginBatch(context.Background())
	require.NoError(t, err)

	err = btx.CreateTransactions(context.Background(), []*transaction.Transaction{{Type: transaction.TypeIncome}})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, btx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
