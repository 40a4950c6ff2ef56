package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConsoleExt/internal/model"
	pkgerrors "ConsoleExt/pkg/errors"
)

func TestResolveRecipientsActiveSubset(t *testing.T) {
	app := &model.Application{Recipients: model.Recipients{
		{Name: "Alice", Phone: "+8613800000001", IsActive: true},
		{Name: "Bob", Phone: "+8613800000002", IsActive: false},
	}}
	owner := &model.User{Name: "Owner", Phone: "+8613900000000"}

	recipients, err := ResolveRecipients(app, owner)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "Alice", recipients[0].Name)
}

func TestResolveRecipientsFallsBackToOwner(t *testing.T) {
	app := &model.Application{Recipients: model.Recipients{
		{Name: "Bob", Phone: "+8613800000002", IsActive: false},
	}}
	owner := &model.User{Name: "Owner", Phone: "+8613900000000"}

	recipients, err := ResolveRecipients(app, owner)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, owner.Phone, recipients[0].Phone)
	assert.True(t, recipients[0].IsActive)
}

func TestResolveRecipientsConfigurationError(t *testing.T) {
	app := &model.Application{Recipients: model.Recipients{}}

	_, err := ResolveRecipients(app, &model.User{Phone: ""})
	assert.ErrorIs(t, err, pkgerrors.RecipientUnavailable)

	_, err = ResolveRecipients(app, nil)
	assert.ErrorIs(t, err, pkgerrors.RecipientUnavailable)
}
