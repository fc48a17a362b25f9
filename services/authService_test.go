package services

import (
	"context"
	"testing"
	"time"

	"coursequiz/db"
	"coursequiz/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthService(allowAdmin bool) *AuthService {
	return NewAuthService(db.NewMemoryStore().Users(), testSecret, time.Hour, allowAdmin)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	service := newAuthService(false)

	user, err := service.Register(ctx, &models.RegisterRequest{Email: " Ada@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	token, err := service.Login(ctx, &models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, user.ID, token.User.ID)

	claims, err := service.ParseToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	service := newAuthService(false)

	_, err := service.Register(ctx, &models.RegisterRequest{Email: "bob@example.com", Password: "secret123"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     *models.RegisterRequest
		wantErr error
	}{
		{
			name:    "duplicate email",
			req:     &models.RegisterRequest{Email: "BOB@example.com", Password: "secret123"},
			wantErr: models.ErrConflict,
		},
		{
			name:    "password without digit",
			req:     &models.RegisterRequest{Email: "carol@example.com", Password: "secretpass"},
			wantErr: models.ErrValidation,
		},
		{
			name:    "password too short",
			req:     &models.RegisterRequest{Email: "carol@example.com", Password: "a1"},
			wantErr: models.ErrValidation,
		},
		{
			name:    "malformed email",
			req:     &models.RegisterRequest{Email: "carol", Password: "secret123"},
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	service := newAuthService(false)
	_, err := service.Register(ctx, &models.RegisterRequest{Email: "dan@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = service.Login(ctx, &models.LoginRequest{Email: "dan@example.com", Password: "wrong123"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = service.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRegisterAdmin(t *testing.T) {
	ctx := context.Background()
	req := &models.RegisterRequest{Email: "root@example.com", Password: "secret123"}

	_, err := newAuthService(false).RegisterAdmin(ctx, req)
	assert.ErrorIs(t, err, models.ErrForbidden)

	admin, err := newAuthService(true).RegisterAdmin(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	service := newAuthService(false)
	user := &models.User{ID: "user-1", Role: models.RoleAdmin}

	foreign := NewAuthService(nil, "other-secret", time.Hour, false)
	token, err := foreign.IssueToken(user)
	require.NoError(t, err)
	_, err = service.ParseToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	expired := NewAuthService(nil, testSecret, -time.Minute, false)
	token, err = expired.IssueToken(user)
	require.NoError(t, err)
	_, err = service.ParseToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1", "iss": tokenIssuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = service.ParseToken(none)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = service.ParseToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
