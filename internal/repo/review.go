package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateReview(ctx context.Context, rev *models.Review) error {
	return r.DB.WithContext(ctx).Create(rev).Error
}

// GetReview looks the review up under its product only.
func (r *GormRepo) GetReview(ctx context.Context, productID, reviewID string) (*models.Review, error) {
	var rev models.Review
	if err := r.DB.WithContext(ctx).Where("id = ? AND product_id = ?", reviewID, productID).First(&rev).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *GormRepo) UpdateReview(ctx context.Context, rev *models.Review) error {
	return r.DB.WithContext(ctx).Model(&models.Review{ID: rev.ID}).
		Select("rating", "body", "date").
		Updates(rev).Error
}

func (r *GormRepo) DeleteReview(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{}).Error
}
