package importer_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/propledger/internal/importer"
	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

// validCSV returns a file of n valid rows whose amounts are 1..n.
func validCSV(n int) []byte {
	var sb strings.Builder

	sb.WriteString("date,type,amount,payee_payer\n")

	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "2024-01-05,income,%d,Tenant %d\n", i, i)
	}

	return []byte(sb.String())
}

func TestService_Run_Preview(t *testing.T) {
	type testCase struct {
		name        string
		data        []byte
		wantPreview int
		wantValid   int
		wantErrors  int
	}

	tests := []testCase{
		{name: "Small", data: validCSV(3), wantPreview: 3, wantValid: 3},
		{name: "CappedAtFifty", data: validCSV(120), wantPreview: 50, wantValid: 120},
		{
			name:        "ErrorsAreAdvisory",
			data:        []byte("date,type,amount\n2024-01-05,income,1200.50\n,expense,abc\n"),
			wantPreview: 1,
			wantValid:   1,
			wantErrors:  1,
		},
		{name: "Empty", data: []byte("type,amount\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No expectations: preview must never reach the store or the archive.
			svc := importer.NewService(importer.NewMockStore(ctrl), importer.NewMockArchiver(ctrl))

			res, err := svc.Run(context.Background(), importer.Request{
				PropertyID: uuid.New(),
				FileName:   "upload.csv",
				Data:       tt.data,
				Mode:       importer.ModePreview,
			})
			require.NoError(t, err)

			assert.Len(t, res.Preview, tt.wantPreview)
			assert.NotNil(t, res.Preview)
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Len(t, res.Errors, tt.wantErrors)
			assert.NotNil(t, res.Errors)
			assert.Zero(t, res.Inserted)
		})
	}
}

func TestService_Run_CommitChunksInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := importer.NewMockStore(ctrl)
	svc := importer.NewService(store, nil)

	propertyID := uuid.New()

	var firstAmounts []int64

	record := func(_ context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
		firstAmounts = append(firstAmounts, params[0].Amount.IntPart())

		for _, p := range params {
			assert.Equal(t, propertyID, p.PropertyID)
			assert.Equal(t, transaction.TypeIncome, p.Type)
		}

		return make([]*transaction.Transaction, len(params)), nil
	}

	gomock.InOrder(
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(300)).DoAndReturn(record),
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(300)).DoAndReturn(record),
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(300)).DoAndReturn(record),
	)

	res, err := svc.Run(context.Background(), importer.Request{
		PropertyID: propertyID,
		FileName:   "upload.csv",
		Data:       validCSV(900),
		Mode:       importer.ModeImport,
	})
	require.NoError(t, err)

	assert.Equal(t, 900, res.Inserted)
	assert.Equal(t, []int64{1, 301, 601}, firstAmounts)
}

func TestService_Run_CommitPartialChunk(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := importer.NewMockStore(ctrl)
	svc := importer.NewService(store, nil)

	gomock.InOrder(
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(300)).Return(nil, nil),
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(1)).Return(nil, nil),
	)

	res, err := svc.Run(context.Background(), importer.Request{
		FileName: "upload.csv",
		Data:     validCSV(301),
		Mode:     importer.ModeImport,
	})
	require.NoError(t, err)
	assert.Equal(t, 301, res.Inserted)
}

func TestService_Run_CommitRejectsAnyInvalidRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No CreateBatch expectation: nothing may be stored.
	svc := importer.NewService(importer.NewMockStore(ctrl), nil)

	data := append(validCSV(301), []byte("2024-01-06,refund,10,Someone\n")...)

	res, err := svc.Run(context.Background(), importer.Request{
		FileName: "upload.csv",
		Data:     data,
		Mode:     importer.ModeImport,
	})

	assert.ErrorIs(t, err, importer.ErrValidation)
	require.NotNil(t, res)
	assert.Zero(t, res.Inserted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 303, res.Errors[0].Row)
	assert.Equal(t, "type", res.Errors[0].Field)
}

func TestService_Run_CommitStopsAtFailingChunk(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := importer.NewMockStore(ctrl)
	svc := importer.NewService(store, importer.NewMockArchiver(ctrl))

	dbErr := errors.New("connection reset")

	gomock.InOrder(
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(300)).Return(nil, nil),
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(300)).Return(nil, dbErr),
	)

	res, err := svc.Run(context.Background(), importer.Request{
		FileName: "upload.csv",
		Data:     validCSV(900),
		Mode:     importer.ModeImport,
	})

	assert.ErrorIs(t, err, importer.ErrPersist)
	assert.ErrorIs(t, err, dbErr)
	require.NotNil(t, res)
	assert.Equal(t, 300, res.Inserted)
	assert.Empty(t, res.Archived)
}

func TestService_Run_DecodeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := importer.NewService(importer.NewMockStore(ctrl), nil)

	for _, mode := range []importer.Mode{importer.ModePreview, importer.ModeImport} {
		res, err := svc.Run(context.Background(), importer.Request{
			FileName: "broken.xlsx",
			Data:     []byte("PK not really"),
			Mode:     mode,
		})

		assert.ErrorIs(t, err, importer.ErrDecode, mode)
		require.NotNil(t, res)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 0, res.Errors[0].Row)
		assert.True(t, strings.HasPrefix(res.Errors[0].Message, "failed to parse file: "), res.Errors[0].Message)
		assert.Empty(t, res.Preview)
	}
}

func TestService_Run_ArchivesCommittedFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := importer.NewMockStore(ctrl)
	archiver := importer.NewMockArchiver(ctrl)
	svc := importer.NewService(store, archiver)

	propertyID := uuid.New()
	data := validCSV(2)

	store.EXPECT().
		CreateBatch(gomock.Any(), gomock.Len(2)).
		DoAndReturn(func(_ context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
			assert.True(t, decimal.NewFromInt(2).Equal(params[1].Amount))
			assert.Equal(t, "Tenant 2", *params[1].Counterparty)
			require.NotNil(t, params[1].Date)
			assert.Equal(t, "2024-01-05", params[1].Date.Format("2006-01-02"))

			return nil, nil
		})
	archiver.EXPECT().
		Archive(gomock.Any(), propertyID, "rent.csv", data).
		Return("imports/key.csv", nil)

	res, err := svc.Run(context.Background(), importer.Request{
		PropertyID: propertyID,
		FileName:   "rent.csv",
		Data:       data,
		Mode:       importer.ModeImport,
	})
	require.NoError(t, err)
	assert.Equal(t, "imports/key.csv", res.Archived)
}

func TestService_Run_ArchiveFailureDoesNotFailImport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := importer.NewMockStore(ctrl)
	archiver := importer.NewMockArchiver(ctrl)
	svc := importer.NewService(store, archiver)

	store.EXPECT().CreateBatch(gomock.Any(), gomock.Any()).Return(nil, nil)
	archiver.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("bucket missing"))

	res, err := svc.Run(context.Background(), importer.Request{
		FileName: "rent.csv",
		Data:     validCSV(1),
		Mode:     importer.ModeImport,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Empty(t, res.Archived)
}

func TestService_Run_InvalidMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := importer.NewService(importer.NewMockStore(ctrl), nil)

	_, err := svc.Run(context.Background(), importer.Request{FileName: "a.csv", Mode: "delete"})
	assert.ErrorIs(t, err, importer.ErrInvalidMode)
}

func TestParseMode(t *testing.T) {
	m, err := importer.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, importer.ModePreview, m)

	m, err = importer.ParseMode("import")
	require.NoError(t, err)
	assert.Equal(t, importer.ModeImport, m)

	_, err = importer.ParseMode("destroy")
	assert.ErrorIs(t, err, importer.ErrInvalidMode)
}
