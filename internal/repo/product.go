package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

var listColumns = []string{"id", "name", "price", "description", "image_type", "created_at", "updated_at"}

func (r *GormRepo) ListProducts(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Select(listColumns).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListProductsWithReviews is used by the admin export.
func (r *GormRepo) ListProductsWithReviews(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := r.DB.WithContext(ctx).Select(listColumns).Preload("Reviews").Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Select(listColumns).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProductWithReviews(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.DB.WithContext(ctx).
		Select(listColumns).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("date DESC") }).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProductImage(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Select("id", "image", "image_type").Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

// UpdateProduct writes the editable fields; the image is replaced only when
// a new one is supplied.
func (r *GormRepo) UpdateProduct(ctx context.Context, prod *models.Product) error {
	cols := []string{"name", "price", "description", "updated_at"}
	if len(prod.Image) > 0 {
		cols = append(cols, "image", "image_type")
	}
	res := r.DB.WithContext(ctx).Model(&models.Product{ID: prod.ID}).Select(cols).Updates(prod)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProduct removes the product with its cart lines and reviews.
func (r *GormRepo) DeleteProduct(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SearchProducts is the LIKE fallback used when no search index is configured.
func (r *GormRepo) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	pattern := "%" + q + "%"
	where := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)

	var total int64
	if err := where.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := where.Session(&gorm.Session{}).Select(listColumns).Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
