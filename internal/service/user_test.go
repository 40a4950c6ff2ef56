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

func TestGetProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, func(u *model.User) {
		u.RateLimitWindow = 15
		u.CallEnabled = true
	})

	profile, err := svc.GetProfile(context.Background(), publicIDStr(user.PublicID))
	require.NoError(t, err)

	assert.Equal(t, user.Email, profile.Email)
	assert.Equal(t, 15, profile.Settings.RateLimitWindow)
	assert.True(t, profile.Settings.CallEnabled)
}

func TestGetProfileUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	_, err := svc.GetProfile(context.Background(), "12345")
	assert.ErrorIs(t, err, pkgerrors.UserNotFound)
}

func TestUpdateSettings(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, nil)

	window := 30
	callEnabled := true
	profile, err := svc.UpdateSettings(context.Background(), publicIDStr(user.PublicID), dto.UpdateUserSettingsRequest{
		RateLimitWindow: &window,
		CallEnabled:     &callEnabled,
	})
	require.NoError(t, err)

	assert.Equal(t, 30, profile.Settings.RateLimitWindow)
	assert.True(t, profile.Settings.CallEnabled)
	// 未提交的字段保持不变
	assert.True(t, profile.Settings.RetryEnabled)
	assert.Equal(t, model.RetryDelayDefault, profile.Settings.RetryDelay)

	var reloaded model.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 30, reloaded.RateLimitWindow)
	assert.True(t, reloaded.CallEnabled)
}

func TestUpdateSettingsRejectsOutOfRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, nil)

	cases := []dto.UpdateUserSettingsRequest{
		{RateLimitWindow: intPtr(0)},
		{RateLimitWindow: intPtr(61)},
		{RetryDelay: intPtr(0)},
		{RetryDelay: intPtr(31)},
	}

	for _, req := range cases {
		_, err := svc.UpdateSettings(context.Background(), publicIDStr(user.PublicID), req)
		assert.ErrorIs(t, err, pkgerrors.SettingsOutOfRange)
	}

	// 越界请求整体拒绝，原值不受影响
	var reloaded model.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, model.RateLimitWindowDefault, reloaded.RateLimitWindow)
	assert.Equal(t, model.RetryDelayDefault, reloaded.RetryDelay)
}

func TestUpdateSettingsBoundaryValues(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, nil)

	profile, err := svc.UpdateSettings(context.Background(), publicIDStr(user.PublicID), dto.UpdateUserSettingsRequest{
		RateLimitWindow: intPtr(model.RateLimitWindowMax),
		RetryDelay:      intPtr(model.RetryDelayMin),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RateLimitWindowMax, profile.Settings.RateLimitWindow)
	assert.Equal(t, model.RetryDelayMin, profile.Settings.RetryDelay)
}

func TestUpdateSettingsValidatesPhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, nil)

	bad := "abc"
	_, err := svc.UpdateSettings(context.Background(), publicIDStr(user.PublicID), dto.UpdateUserSettingsRequest{Phone: &bad})
	assert.ErrorIs(t, err, pkgerrors.RecipientPhoneInvalid)

	// 允许清空手机号
	empty := ""
	profile, err := svc.UpdateSettings(context.Background(), publicIDStr(user.PublicID), dto.UpdateUserSettingsRequest{Phone: &empty})
	require.NoError(t, err)
	assert.Empty(t, profile.Phone)
}

func TestUpdateSettingsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)
	user := seedUser(t, db, nil)

	profile, err := svc.UpdateSettings(context.Background(), publicIDStr(user.PublicID), dto.UpdateUserSettingsRequest{})
	require.NoError(t, err)
	assert.Equal(t, user.Email, profile.Email)
}

func intPtr(v int) *int {
	return &v
}
