package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsoleExt/internal/model"
	"ConsoleExt/internal/model/dto"
	pkgerrors "ConsoleExt/pkg/errors"
)

func newAppService(t *testing.T) (*ApplicationService, *testAppFixture) {
	t.Helper()

	db := newTestDB(t)
	svc := NewApplicationService(db)
	svc.DisableCache()

	user := seedUser(t, db, nil)
	defaultApp := seedApplication(t, db, user, model.DefaultApplicationName, model.Recipients{
		{Name: user.Name, Phone: user.Phone, IsActive: true},
	})

	return svc, &testAppFixture{svc: svc, user: user, defaultApp: defaultApp}
}

type testAppFixture struct {
	svc        *ApplicationService
	user       *model.User
	defaultApp *model.Application
}

func (f *testAppFixture) userID() string {
	return publicIDStr(f.user.PublicID)
}

func TestCreateApplication(t *testing.T) {
	svc, f := newAppService(t)

	item, err := svc.CreateApplication(context.Background(), f.userID(), dto.CreateApplicationRequest{Name: "checkout"})
	require.NoError(t, err)

	assert.Equal(t, "checkout", item.Name)
	assert.False(t, item.IsDefault)
	assert.True(t, strings.HasPrefix(item.APIKey, "cek_"))

	// 本人作为第一个接收人
	require.Len(t, item.Recipients, 1)
	assert.Equal(t, f.user.Name, item.Recipients[0].Name)
	assert.Equal(t, f.user.Phone, item.Recipients[0].Phone)
	assert.True(t, item.Recipients[0].IsActive)
}

func TestCreateApplicationWithoutOwnerPhone(t *testing.T) {
	svc, _ := newAppService(t)
	owner := seedUser(t, svc.db, func(u *model.User) {
		u.Phone = ""
	})

	item, err := svc.CreateApplication(context.Background(), publicIDStr(owner.PublicID), dto.CreateApplicationRequest{Name: "checkout"})
	require.NoError(t, err)
	assert.Empty(t, item.Recipients)
}

func TestCreateApplicationRejectsReservedName(t *testing.T) {
	svc, f := newAppService(t)

	_, err := svc.CreateApplication(context.Background(), f.userID(), dto.CreateApplicationRequest{Name: model.DefaultApplicationName})
	assert.ErrorIs(t, err, pkgerrors.DefaultAppProtected)

	_, err = svc.CreateApplication(context.Background(), f.userID(), dto.CreateApplicationRequest{Name: ""})
	assert.ErrorIs(t, err, pkgerrors.DefaultAppProtected)
}

func TestCreateApplicationRejectsDuplicateName(t *testing.T) {
	svc, f := newAppService(t)

	_, err := svc.CreateApplication(context.Background(), f.userID(), dto.CreateApplicationRequest{Name: "checkout"})
	require.NoError(t, err)

	_, err = svc.CreateApplication(context.Background(), f.userID(), dto.CreateApplicationRequest{Name: "checkout"})
	assert.ErrorIs(t, err, pkgerrors.ApplicationNameTaken)
}

func TestDeleteApplicationProtectsDefault(t *testing.T) {
	svc, f := newAppService(t)

	err := svc.DeleteApplication(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID))
	assert.ErrorIs(t, err, pkgerrors.DefaultAppProtected)
}

func TestDeleteApplication(t *testing.T) {
	svc, f := newAppService(t)

	item, err := svc.CreateApplication(context.Background(), f.userID(), dto.CreateApplicationRequest{Name: "checkout"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteApplication(context.Background(), f.userID(), item.ID))

	apps, err := svc.ListApplications(context.Background(), f.userID())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.True(t, apps[0].IsDefault)
}

func TestRotateAPIKeyInvalidatesOldKey(t *testing.T) {
	svc, f := newAppService(t)
	oldKey := f.defaultApp.APIKey

	item, err := svc.RotateAPIKey(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID))
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, item.APIKey)

	_, err = svc.GetByAPIKey(context.Background(), oldKey)
	assert.ErrorIs(t, err, pkgerrors.APIKeyInvalid)

	app, err := svc.GetByAPIKey(context.Background(), item.APIKey)
	require.NoError(t, err)
	assert.Equal(t, f.defaultApp.ID, app.ID)
}

func TestGetByAPIKeyRejectsEmptyKey(t *testing.T) {
	svc, _ := newAppService(t)

	_, err := svc.GetByAPIKey(context.Background(), "")
	assert.ErrorIs(t, err, pkgerrors.APIKeyInvalid)
}

func TestAddRecipient(t *testing.T) {
	svc, f := newAppService(t)

	item, err := svc.AddRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), dto.AddRecipientRequest{
		Name:  "Alice",
		Phone: "+8613800000001",
	})
	require.NoError(t, err)

	require.Len(t, item.Recipients, 2)
	assert.Equal(t, 1, item.Recipients[1].Index)
	assert.Equal(t, "Alice", item.Recipients[1].Name)
	assert.True(t, item.Recipients[1].IsActive)
}

func TestAddRecipientValidatesPhone(t *testing.T) {
	svc, f := newAppService(t)

	_, err := svc.AddRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), dto.AddRecipientRequest{
		Name:  "Alice",
		Phone: "not-a-phone",
	})
	assert.ErrorIs(t, err, pkgerrors.RecipientPhoneInvalid)
}

func TestUpdateRecipientKeepsNilFields(t *testing.T) {
	svc, f := newAppService(t)

	newName := "Renamed"
	item, err := svc.UpdateRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), 0, dto.UpdateRecipientRequest{
		Name: &newName,
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", item.Recipients[0].Name)
	assert.Equal(t, f.user.Phone, item.Recipients[0].Phone)
	assert.True(t, item.Recipients[0].IsActive)
}

func TestUpdateRecipientRejectsDeactivatingLastActive(t *testing.T) {
	svc, f := newAppService(t)

	inactive := false
	_, err := svc.UpdateRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), 0, dto.UpdateRecipientRequest{
		IsActive: &inactive,
	})
	assert.ErrorIs(t, err, pkgerrors.RecipientLastActive)
}

func TestUpdateRecipientAllowsDeactivatingWithBackup(t *testing.T) {
	svc, f := newAppService(t)

	_, err := svc.AddRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), dto.AddRecipientRequest{
		Name:  "Alice",
		Phone: "+8613800000001",
	})
	require.NoError(t, err)

	inactive := false
	item, err := svc.UpdateRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), 0, dto.UpdateRecipientRequest{
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, item.Recipients[0].IsActive)
	assert.True(t, item.Recipients[1].IsActive)
}

func TestUpdateRecipientOutOfRange(t *testing.T) {
	svc, f := newAppService(t)

	_, err := svc.UpdateRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), 5, dto.UpdateRecipientRequest{})
	assert.ErrorIs(t, err, pkgerrors.RecipientNotFound)
}

func TestRemoveRecipientKeepsAtLeastOne(t *testing.T) {
	svc, f := newAppService(t)

	_, err := svc.RemoveRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), 0)
	assert.ErrorIs(t, err, pkgerrors.RecipientLastRemaining)
}

func TestRemoveRecipient(t *testing.T) {
	svc, f := newAppService(t)

	_, err := svc.AddRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), dto.AddRecipientRequest{
		Name:  "Alice",
		Phone: "+8613800000001",
	})
	require.NoError(t, err)

	item, err := svc.RemoveRecipient(context.Background(), f.userID(), publicIDStr(f.defaultApp.PublicID), 0)
	require.NoError(t, err)
	require.Len(t, item.Recipients, 1)
	assert.Equal(t, "Alice", item.Recipients[0].Name)
	assert.Equal(t, 0, item.Recipients[0].Index)
}

func TestApplicationOwnershipEnforced(t *testing.T) {
	svc, f := newAppService(t)
	intruder := seedUser(t, f.svc.db, nil)

	err := svc.DeleteApplication(context.Background(), publicIDStr(intruder.PublicID), publicIDStr(f.defaultApp.PublicID))
	assert.ErrorIs(t, err, pkgerrors.ApplicationNotFound)
}
