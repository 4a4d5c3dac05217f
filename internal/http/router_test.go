package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/propledger/internal/auth"
	apihttp "github.com/MrJamesThe3rd/propledger/internal/http"
	"github.com/MrJamesThe3rd/propledger/internal/http/importtx"
	httpproperty "github.com/MrJamesThe3rd/propledger/internal/http/property"
	httptx "github.com/MrJamesThe3rd/propledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/propledger/internal/importer"
	"github.com/MrJamesThe3rd/propledger/internal/property"
	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

const secret = "test-secret"

func newRouter(t *testing.T, propRepo *property.MockRepository) http.Handler {
	t.Helper()

	ctrl := gomock.NewController(t)

	propSvc := property.NewService(propRepo)
	txSvc := transaction.NewService(transaction.NewMockRepository(ctrl))

	return apihttp.New(
		apihttp.Options{
			AllowedOrigins: []string{"https://app.example.com"},
			Authenticate:   auth.NewVerifier(secret, "", "").Middleware,
		},
		httpproperty.NewHandler(propSvc),
		httptx.NewHandler(txSvc, propSvc),
		importtx.NewHandler(importer.NewService(importer.NewMockStore(ctrl), nil), propSvc, 1<<20),
	)
}

func TestRouter_Healthz(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := httptest.NewRecorder()
	newRouter(t, property.NewMockRepository(ctrl)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestRouter_RequiresToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := httptest.NewRecorder()
	newRouter(t, property.NewMockRepository(ctrl)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AuthenticatedList(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	repo := property.NewMockRepository(ctrl)
	repo.EXPECT().
		ListProperties(gomock.Any(), property.ListFilter{MemberID: &userID}).
		Return(nil, nil)

	token, err := auth.Sign(secret, userID, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	newRouter(t, repo).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_CORSPreflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/transactions/import", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	newRouter(t, property.NewMockRepository(ctrl)).ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
