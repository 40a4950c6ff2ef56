package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsoleExt/internal/model"
	"ConsoleExt/internal/model/dto"
	pkgerrors "ConsoleExt/pkg/errors"
)

// newTestAuthService 把 refresh token 存储换成内存 map，绕开 Redis
func newTestAuthService(t *testing.T) (*AuthService, map[string]string) {
	t.Helper()

	svc := NewAuthService(newTestDB(t))
	store := map[string]string{}
	svc.storeRefresh = func(ctx context.Context, userID, refreshToken string) error {
		store[userID] = refreshToken
		return nil
	}
	svc.deleteRefresh = func(ctx context.Context, userID string) error {
		delete(store, userID)
		return nil
	}
	svc.checkRefresh = func(ctx context.Context, userID, refreshToken string) bool {
		return store[userID] == refreshToken
	}
	return svc, store
}

func TestRegisterCreatesAccountAndDefaultApplication(t *testing.T) {
	svc, store := newTestAuthService(t)

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "Dev@Example.COM ",
		Password: "secret123",
		Name:     "Dev",
		Phone:    "+8613800138000",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "dev@example.com", resp.User.Email)
	assert.Equal(t, resp.RefreshToken, store[resp.User.ID])

	// 默认应用随账户创建，本人作为第一个接收人
	var app model.Application
	require.NoError(t, svc.db.Where("name = ?", model.DefaultApplicationName).First(&app).Error)
	assert.True(t, app.IsDefault())
	require.Len(t, app.Recipients, 1)
	assert.Equal(t, "+8613800138000", app.Recipients[0].Phone)
	assert.True(t, app.Recipients[0].IsActive)
}

func TestRegisterWithoutPhoneHasNoDefaultRecipient(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "dev@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	var app model.Application
	require.NoError(t, svc.db.Where("name = ?", model.DefaultApplicationName).First(&app).Error)
	assert.Empty(t, app.Recipients)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "", Password: "x"})
	assert.ErrorIs(t, err, pkgerrors.InvalidRequest)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{Email: "a@b.com", Password: ""})
	assert.ErrorIs(t, err, pkgerrors.InvalidRequest)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{Email: "a@b.com", Password: "x", Phone: "bogus"})
	assert.ErrorIs(t, err, pkgerrors.RecipientPhoneInvalid)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "dev@example.com", Password: "secret123"})
	require.NoError(t, err)

	// 大小写归一后视为同一邮箱
	_, err = svc.Register(context.Background(), dto.RegisterRequest{Email: "DEV@example.com", Password: "other"})
	assert.ErrorIs(t, err, pkgerrors.EmailAlreadyRegistered)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "dev@example.com", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "dev@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "dev@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, pkgerrors.InvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, pkgerrors.InvalidCredentials)
}

func TestRefreshTokenRotation(t *testing.T) {
	svc, store := newTestAuthService(t)

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "dev@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, refreshed.RefreshToken, store[registered.User.ID])

	_, err = svc.RefreshToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, pkgerrors.Unauthorized)
}

func TestRefreshTokenRejectedAfterLogout(t *testing.T) {
	svc, _ := newTestAuthService(t)

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "dev@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), registered.User.ID))

	_, err = svc.RefreshToken(context.Background(), registered.RefreshToken)
	assert.ErrorIs(t, err, pkgerrors.Unauthorized)
}
