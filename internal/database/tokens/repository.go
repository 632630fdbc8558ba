// Package tokens stores the bearer sessions issued at login.
package tokens

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, token *entities.APIToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByHash looks a token up by the SHA-256 hash of its plaintext.
func (r *Repository) GetByHash(ctx context.Context, hash string) (*entities.APIToken, error) {
	var token entities.APIToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Touch records the time a token was last presented.
func (r *Repository) Touch(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.APIToken{}).Where("id = ?", id).Update("last_used_at", at).Error
}

func (r *Repository) DeleteByHash(ctx context.Context, hash string) (int64, error) {
	result := r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&entities.APIToken{})
	return result.RowsAffected, result.Error
}

// DeleteForUser revokes every session of the user.
func (r *Repository) DeleteForUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entities.APIToken{})
	return result.RowsAffected, result.Error
}

// DeleteExpired removes tokens that expired before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(&entities.APIToken{})
	return result.RowsAffected, result.Error
}
