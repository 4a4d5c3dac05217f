package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/propledger/internal/auth"
)

const secret = "test-secret"

func TestVerifier_Verify(t *testing.T) {
	userID := uuid.New()
	v := auth.NewVerifier(secret, "", "")

	valid, err := auth.Sign(secret, userID, time.Hour)
	require.NoError(t, err)

	expired, err := auth.Sign(secret, userID, -time.Hour)
	require.NoError(t, err)

	wrongKey, err := auth.Sign("other-secret", userID, time.Hour)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: userID.String(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "Valid", token: valid},
		{name: "Expired", token: expired, wantErr: true},
		{name: "WrongKey", token: wrongKey, wantErr: true},
		{name: "BadSubject", token: badSubject, wantErr: true},
		{name: "NoExpiry", token: noExpiry, wantErr: true},
		{name: "Garbage", token: "abc.def.ghi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(tt.token)

			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrInvalidToken)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, userID, got)
		})
	}
}

func TestVerifier_Middleware(t *testing.T) {
	userID := uuid.New()
	v := auth.NewVerifier(secret, "", "")

	token, err := auth.Sign(secret, userID, time.Hour)
	require.NoError(t, err)

	var seen uuid.UUID

	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "Authorized", header: "Bearer " + token, wantStatus: http.StatusNoContent},
		{name: "LowercaseScheme", header: "bearer " + token, wantStatus: http.StatusNoContent},
		{name: "Missing", wantStatus: http.StatusUnauthorized},
		{name: "WrongScheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "BadToken", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil

			req := httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, userID, seen)
			} else {
				assert.Equal(t, uuid.Nil, seen)
				assert.JSONEq(t, `{"ok":false,"message":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}
