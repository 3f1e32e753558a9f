package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/skillcert/skillcert-api/internal/models"
)

// ProgressRepository persists the per-user progress ledger.
type ProgressRepository interface {
	Get(ctx context.Context, userID uint) (models.UserProgress, error)
	Create(ctx context.Context, progress *models.UserProgress) error
	Update(ctx context.Context, progress *models.UserProgress) error
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, userID uint) (models.UserProgress, error) {
	var progress models.UserProgress
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&progress).Error; err != nil {
		return models.UserProgress{}, err
	}

	return progress, nil
}

func (r *progressRepository) Create(ctx context.Context, progress *models.UserProgress) error {
	return r.db.WithContext(ctx).Create(progress).Error
}

func (r *progressRepository) Update(ctx context.Context, progress *models.UserProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}
