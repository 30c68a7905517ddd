package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/internal/repositories"
)

// Identity is what the identity provider tells us about a signed-in user.
type Identity struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
}

type UserService struct {
	repo            repositories.UserRepository
	defaultRadiusKm int
	now             func() time.Time
}

func NewUserService(repo repositories.UserRepository, defaultRadiusKm int) *UserService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = models.DefaultRadiusKm
	}
	return &UserService{repo: repo, defaultRadiusKm: defaultRadiusKm, now: time.Now}
}

// EnsureProfile returns the profile of id, creating it with default settings
// on first sign-in.
func (s *UserService) EnsureProfile(ctx context.Context, id Identity) (*models.User, error) {
	if id.UID == "" {
		return nil, models.NewUnauthorizedError("Missing user id")
	}

	user, err := s.repo.GetUserByID(ctx, id.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, models.NewInternalError(err)
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = models.DefaultUserName
	}
	settings := models.DefaultSettings()
	settings.Radius = s.defaultRadiusKm

	now := s.now()
	user = &models.User{
		ID:          id.UID,
		Email:       id.Email,
		DisplayName: name,
		PhotoURL:    id.PhotoURL,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	// Re-read so a concurrent first sign-in returns the row that won.
	user, err = s.repo.GetUserByID(ctx, id.UID)
	if err != nil {
		return nil, storeError(err, "user", id.UID)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user", id)
	}
	return user, nil
}

// UpdateProfile changes the fields present in req.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, models.NewValidationError("Display name cannot be empty")
		}
		updates["display_name"] = name
	}
	if req.Nickname != nil {
		updates["nickname"] = strings.TrimSpace(*req.Nickname)
	}
	if req.Bio != nil {
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.PhotoURL != nil {
		updates["photo_url"] = strings.TrimSpace(*req.PhotoURL)
	}

	user, err := s.repo.UpdateProfile(ctx, id, updates)
	if err != nil {
		return nil, storeError(err, "user", id)
	}
	return user, nil
}

// GetSettings returns the user's settings with defaults filled in.
func (s *UserService) GetSettings(ctx context.Context, id string) (models.Settings, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return models.Settings{}, err
	}
	return s.withDefaults(user.Settings), nil
}

// UpdateSettings merges req into the stored settings.
func (s *UserService) UpdateSettings(ctx context.Context, id string, req models.UpdateSettingsRequest) (models.Settings, error) {
	current, err := s.GetSettings(ctx, id)
	if err != nil {
		return models.Settings{}, err
	}
	if req.Radius != nil {
		current.Radius = *req.Radius
	}
	if req.Theme != nil {
		current.Theme = *req.Theme
	}

	user, err := s.repo.UpdateSettings(ctx, id, current)
	if err != nil {
		return models.Settings{}, storeError(err, "user", id)
	}
	return user.Settings, nil
}

func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.UserCompact, error) {
	users, err := s.repo.SearchUsers(ctx, query, 0)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make([]models.UserCompact, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return out, nil
}

// RadiusFor is the feed radius of id: its setting, or the default.
func (s *UserService) RadiusFor(ctx context.Context, id string) float64 {
	settings, err := s.GetSettings(ctx, id)
	if err != nil {
		return float64(s.defaultRadiusKm)
	}
	return float64(settings.Radius)
}

func (s *UserService) withDefaults(in models.Settings) models.Settings {
	if in.Radius <= 0 {
		in.Radius = s.defaultRadiusKm
	}
	if in.Theme == "" {
		in.Theme = models.ThemeDark
	}
	return in
}
