package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/skillcert/skillcert-api/internal/models"
)

// AssessmentRepository stores the append-only attempt log. Records are never
// updated or deleted.
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	ListByUser(ctx context.Context, userID uint) ([]models.Assessment, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository instantiates the repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *assessmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.Assessment, error) {
	var assessments []models.Assessment
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC, id DESC").
		Find(&assessments).Error; err != nil {
		return nil, err
	}

	return assessments, nil
}

func (r *assessmentRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
