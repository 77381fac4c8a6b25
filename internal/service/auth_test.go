package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"collaborative-story/internal/service"
	"collaborative-story/internal/token"
)

func newAuthService(t *testing.T, password string) (*service.AuthService, *token.Codec) {
	t.Helper()
	codec, err := token.NewCodec("admin-secret-for-tests", "invite-secret-for-tests")
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	svc, err := service.NewAuthService(codec, string(hash), 1)
	require.NoError(t, err)
	return svc, codec
}

func TestNewAuthService_RequiresHash(t *testing.T) {
	codec, err := token.NewCodec("admin-secret-for-tests", "invite-secret-for-tests")
	require.NoError(t, err)

	_, err = service.NewAuthService(codec, "", 1)
	assert.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	svc, codec := newAuthService(t, "correct horse battery staple")

	signed, err := svc.Login(context.Background(), "correct horse battery staple")
	require.NoError(t, err)

	claims, err := codec.VerifyAdmin(signed, token.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, token.RoleAdmin, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newAuthService(t, "correct horse battery staple")

	_, err := svc.Login(context.Background(), "hunter2")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)

	_, err = svc.Login(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
}
