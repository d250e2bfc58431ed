package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
