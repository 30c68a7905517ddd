package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/nearby/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultSearchLimit = 20

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error)
	UpdateSettings(ctx context.Context, id string, settings models.Settings) (*models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser inserts user unless a profile with the same id exists. Two
// concurrent first sign-ins therefore create a single row.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error
}

// GetUserByID retrieves a user by Firebase UID
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUsersByIDs returns the users found among ids in no particular order.
func (r *PostgresUserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile applies column updates and returns the stored profile.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetUserByID(ctx, id)
}

// UpdateSettings replaces the user's settings.
func (r *PostgresUserRepository) UpdateSettings(ctx context.Context, id string, settings models.Settings) (*models.User, error) {
	return r.UpdateProfile(ctx, id, map[string]interface{}{
		"settings_radius": settings.Radius,
		"settings_theme":  settings.Theme,
	})
}

// SearchUsers matches display name or nickname, case-insensitively.
func (r *PostgresUserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	users := []models.User{}
	query = strings.TrimSpace(query)
	if query == "" {
		return users, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(display_name) LIKE ? OR LOWER(nickname) LIKE ?", pattern, pattern).
		Order("display_name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
