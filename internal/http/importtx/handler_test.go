package importtx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/propledger/internal/auth"
	"github.com/MrJamesThe3rd/propledger/internal/http/importtx"
	"github.com/MrJamesThe3rd/propledger/internal/importer"
	"github.com/MrJamesThe3rd/propledger/internal/property"
)

type fakeAuthz struct {
	err error
	min property.Role
}

func (f *fakeAuthz) Authorize(_ context.Context, _, _ uuid.UUID, min property.Role) (property.Role, error) {
	f.min = min
	if f.err != nil {
		return "", f.err
	}

	return property.RoleManager, nil
}

type form struct {
	fileName   string
	content    string
	propertyID string
	action     string
}

func newRequest(t *testing.T, f form) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	if f.fileName != "" {
		part, err := mw.CreateFormFile("file", f.fileName)
		require.NoError(t, err)

		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}

	if f.propertyID != "" {
		require.NoError(t, mw.WriteField("propertyId", f.propertyID))
	}

	if f.action != "" {
		require.NoError(t, mw.WriteField("action", f.action))
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req.WithContext(auth.WithUser(req.Context(), uuid.New()))
}

func serve(h *importtx.Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

const exampleCSV = "date,type,amount\n2024-01-05,income,1200.50\n,expense,abc\n"

func TestHandler_Preview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	authz := &fakeAuthz{}
	h := importtx.NewHandler(importer.NewService(importer.NewMockStore(ctrl), nil), authz, 1<<20)

	rec := serve(h, newRequest(t, form{fileName: "example.csv", content: exampleCSV, propertyID: uuid.NewString()}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, property.RoleManager, authz.min)
	assert.JSONEq(t, `{
		"ok": true,
		"preview": [{
			"date": "2024-01-05T00:00:00.000Z",
			"type": "income",
			"category": null,
			"payee_payer": null,
			"description": null,
			"amount": 1200.5,
			"currency": null
		}],
		"errors": [{"row": 3, "message": "Invalid or missing 'amount'", "field": "amount", "value": "abc"}]
	}`, rec.Body.String())
}

func TestHandler_ImportSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := importer.NewMockStore(ctrl)
	store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(2)).Return(nil, nil)

	h := importtx.NewHandler(importer.NewService(store, nil), &fakeAuthz{}, 1<<20)

	rec := serve(h, newRequest(t, form{
		fileName:   "rent.csv",
		content:    "type,amount\nincome,900\nexpense,45\n",
		propertyID: uuid.NewString(),
		action:     "import",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true, "inserted": 2}`, rec.Body.String())
}

func TestHandler_ImportValidationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := importtx.NewHandler(importer.NewService(importer.NewMockStore(ctrl), nil), &fakeAuthz{}, 1<<20)

	rec := serve(h, newRequest(t, form{fileName: "example.csv", content: exampleCSV, propertyID: uuid.NewString(), action: "import"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		OK      bool                       `json:"ok"`
		Message string                     `json:"message"`
		Errors  []importer.ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "Validation failed", body.Message)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, 3, body.Errors[0].Row)
}

func TestHandler_ImportPersistFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := importer.NewMockStore(ctrl)
	gomock.InOrder(
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Len(300)).Return(nil, nil),
		store.EXPECT().CreateBatch(gomock.Any(), gomock.Any()).Return(nil, errors.New("unique violation")),
	)

	var sb strings.Builder

	sb.WriteString("type,amount\n")

	for i := range 450 {
		fmt.Fprintf(&sb, "income,%d\n", i+1)
	}

	h := importtx.NewHandler(importer.NewService(store, nil), &fakeAuthz{}, 1<<20)

	rec := serve(h, newRequest(t, form{fileName: "big.csv", content: sb.String(), propertyID: uuid.NewString(), action: "import"}))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"ok": false, "message": "DB insert failed", "inserted": 300}`, rec.Body.String())
}

func TestHandler_DecodeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := importtx.NewHandler(importer.NewService(importer.NewMockStore(ctrl), nil), &fakeAuthz{}, 1<<20)

	rec := serve(h, newRequest(t, form{fileName: "broken.xlsx", content: "garbage", propertyID: uuid.NewString()}))

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		OK      bool                       `json:"ok"`
		Message string                     `json:"message"`
		Errors  []importer.ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Contains(t, body.Message, "failed to parse file")
	require.Len(t, body.Errors, 1)
	assert.Equal(t, 0, body.Errors[0].Row)
}

func TestHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		form        form
		authErr     error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "NoFile",
			form:        form{propertyID: uuid.NewString()},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "No file uploaded",
		},
		{
			name:        "MissingProperty",
			form:        form{fileName: "a.csv", content: exampleCSV},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Missing propertyId",
		},
		{
			name:        "InvalidProperty",
			form:        form{fileName: "a.csv", content: exampleCSV, propertyID: "42"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid propertyId",
		},
		{
			name:        "UnknownAction",
			form:        form{fileName: "a.csv", content: exampleCSV, propertyID: uuid.NewString(), action: "purge"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: importer.ErrInvalidMode.Error(),
		},
		{
			name:       "ViewerForbidden",
			form:       form{fileName: "a.csv", content: exampleCSV, propertyID: uuid.NewString()},
			authErr:    property.ErrForbidden,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			h := importtx.NewHandler(importer.NewService(importer.NewMockStore(ctrl), nil), &fakeAuthz{err: tt.authErr}, 1<<20)

			rec := serve(h, newRequest(t, tt.form))
			require.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["ok"])

			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body["message"])
			}
		})
	}
}

func TestHandler_TooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := importtx.NewHandler(importer.NewService(importer.NewMockStore(ctrl), nil), &fakeAuthz{}, 64)

	rec := serve(h, newRequest(t, form{fileName: "a.csv", content: strings.Repeat("x", 1024), propertyID: uuid.NewString()}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
