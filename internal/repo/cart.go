package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func productColumns(db *gorm.DB) *gorm.DB { return db.Select(listColumns) }

func (r *GormRepo) GetCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB.WithContext(ctx).
		Preload("Product", productColumns).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetCartLine(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateCartLine(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) SetCartQuantity(ctx context.Context, id string, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", id).Update("quantity", qty).Error
}

func (r *GormRepo) DeleteCartLines(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CartItem{}).Error
}

// RemoveFromCart reports whether a line was deleted.
func (r *GormRepo) RemoveFromCart(ctx context.Context, userID, productID string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) DeleteAllFromCart(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
