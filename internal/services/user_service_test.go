package services

import (
	"context"
	"testing"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestUserService_EnsureProfile(t *testing.T) {
	svc := NewUserService(repositories.NewPostgresUserRepository(setupTestDB(t)), 10)
	ctx := context.Background()

	user, err := svc.EnsureProfile(ctx, Identity{UID: "uid-1", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultUserName, user.DisplayName)
	assert.Equal(t, 10, user.Settings.Radius)
	assert.Equal(t, models.ThemeDark, user.Settings.Theme)

	_, err = svc.UpdateProfile(ctx, "uid-1", models.UpdateProfileRequest{DisplayName: strPtr("Ana")})
	require.NoError(t, err)

	// Signing in again keeps the edited profile.
	user, err = svc.EnsureProfile(ctx, Identity{UID: "uid-1", Name: "Google Name"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.DisplayName)

	_, err = svc.EnsureProfile(ctx, Identity{})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestUserService_Settings(t *testing.T) {
	svc := NewUserService(repositories.NewPostgresUserRepository(setupTestDB(t)), models.DefaultRadiusKm)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, Identity{UID: "uid-1"})
	require.NoError(t, err)

	settings, err := svc.UpdateSettings(ctx, "uid-1", models.UpdateSettingsRequest{Theme: strPtr(models.ThemeLight)})
	require.NoError(t, err)
	assert.Equal(t, models.Settings{Radius: models.DefaultRadiusKm, Theme: models.ThemeLight}, settings)

	settings, err = svc.UpdateSettings(ctx, "uid-1", models.UpdateSettingsRequest{Radius: intPtr(25)})
	require.NoError(t, err)
	assert.Equal(t, 25, settings.Radius)
	assert.Equal(t, models.ThemeLight, settings.Theme)

	assert.Equal(t, 25.0, svc.RadiusFor(ctx, "uid-1"))
	assert.Equal(t, float64(models.DefaultRadiusKm), svc.RadiusFor(ctx, "nobody"))
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc := NewUserService(repositories.NewPostgresUserRepository(setupTestDB(t)), models.DefaultRadiusKm)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, Identity{UID: "uid-1", Name: "Ana"})
	require.NoError(t, err)

	user, err := svc.UpdateProfile(ctx, "uid-1", models.UpdateProfileRequest{Bio: strPtr("Local reporter"), Nickname: strPtr("ana")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Equal(t, "Local reporter", user.Bio)

	_, err = svc.UpdateProfile(ctx, "uid-1", models.UpdateProfileRequest{DisplayName: strPtr("  ")})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.UpdateProfile(ctx, "ghost", models.UpdateProfileRequest{Bio: strPtr("x")})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	found, err := svc.SearchUsers(ctx, "ANA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "uid-1", found[0].ID)
}
