package service

import (
	"context"
	"strings"
	"testing"

	"filippo.io/age"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/apperrors"
	"github.com/GoPolymarket/unifygate/internal/pkg/secretbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsMissingFields(t *testing.T) {
	svc := NewInstallationService(NewMemoryInstallationStore(), nil)
	_, err := svc.Create(context.Background(), "u1", model.CreateInstallationRequest{
		InstallationID: "INST-1", InstallationName: "   ", UnifyAPIToken: "tok",
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.HTTPStatus)
	assert.Equal(t, "Missing required fields", appErr.Message)
}

func TestCreateDuplicateKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	svc := NewInstallationService(NewMemoryInstallationStore(), nil)
	_, err := svc.Create(ctx, "u1", model.CreateInstallationRequest{
		InstallationID: "INST-1", InstallationName: "First", UnifyAPIToken: "tok-first",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u1", model.CreateInstallationRequest{
		InstallationID: "INST-1", InstallationName: "Second", UnifyAPIToken: "tok-second",
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.HTTPStatus)
	assert.Equal(t, "Installation already exists for this user", appErr.Message)

	token, err := svc.Credential(ctx, "u1", "INST-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-first", token)

	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "First", items[0].InstallationName)
}

func TestSameInstallationForDifferentUsers(t *testing.T) {
	ctx := context.Background()
	svc := NewInstallationService(NewMemoryInstallationStore(), nil)
	for _, user := range []string{"u1", "u2"} {
		_, err := svc.Create(ctx, user, model.CreateInstallationRequest{
			InstallationID: "INST-1", InstallationName: "Shared", UnifyAPIToken: "tok-" + user,
		})
		require.NoError(t, err)
	}
	token, err := svc.Credential(ctx, "u2", "INST-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-u2", token)

	owns, err := svc.Owns(ctx, "u3", "INST-1")
	require.NoError(t, err)
	assert.False(t, owns)
}

func TestTokensAreSealedAtRest(t *testing.T) {
	ctx := context.Background()
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	box, err := secretbox.New(id.String())
	require.NoError(t, err)

	store := NewMemoryInstallationStore()
	svc := NewInstallationService(store, box)
	created, err := svc.Create(ctx, "u1", model.CreateInstallationRequest{
		InstallationID: " INST-1 ", InstallationName: "Site", UnifyAPIToken: "tok-abcdefgh",
	})
	require.NoError(t, err)
	assert.Equal(t, "INST-1", created.InstallationID)
	assert.Equal(t, "tok-abcdefgh", created.UnifyAPIToken)

	raw, err := store.Get(ctx, "u1", "INST-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw.UnifyAPIToken, "age:"))

	token, err := svc.Credential(ctx, "u1", "INST-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abcdefgh", token)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "abcd...wxyz", MaskToken("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "****", MaskToken("short"))
	assert.Equal(t, "****", MaskToken(""))
}
