package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

const MaxLineQuantity = 5

type CartService struct {
	Repo *repo.GormRepo
}

type AddResult struct {
	Line    *models.CartItem
	Created bool
	Clamped bool
}

// MergeLine adds add to current and caps the result at max.
func MergeLine(current, add, max int) (int, bool) {
	if current+add > max {
		return max, true
	}
	return current + add, false
}

func NormalizeQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

func CartTotal(lines []models.CartItem) float64 {
	var total float64
	for _, l := range lines {
		if l.Product != nil {
			total += l.Product.Price * float64(l.Quantity)
		}
	}
	return total
}

// View returns the cart after dropping lines whose product is gone.
func (s *CartService) View(ctx context.Context, userID string) ([]models.CartItem, error) {
	lines, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := lines[:0]
	var stale []string
	for _, l := range lines {
		if l.Product == nil {
			stale = append(stale, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	if len(stale) > 0 {
		logging.FromContext(ctx).Info("cart_pruned", "user_id", userID, "lines", len(stale))
		if err := s.Repo.DeleteCartLines(ctx, stale); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

// Add merges into an existing line with the cap applied to increments only;
// a new line takes the requested quantity as is.
func (s *CartService) Add(ctx context.Context, userID, rawProductID string, qty int) (*AddResult, error) {
	productID, err := parseID(rawProductID, "product")
	if err != nil {
		return nil, err
	}
	qty = NormalizeQuantity(qty)

	var res AddResult
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return notFound(err, "product")
		}

		line, err := tx.GetCartLine(ctx, userID, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			line = &models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
			if err := tx.CreateCartLine(ctx, line); err != nil {
				return err
			}
			res = AddResult{Line: line, Created: true}
			return nil
		}
		if err != nil {
			return err
		}

		merged, clamped := MergeLine(line.Quantity, qty, MaxLineQuantity)
		if merged != line.Quantity {
			if err := tx.SetCartQuantity(ctx, line.ID, merged); err != nil {
				return err
			}
		}
		line.Quantity = merged
		res = AddResult{Line: line, Clamped: clamped}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Remove is idempotent; it reports whether a line existed.
func (s *CartService) Remove(ctx context.Context, userID, rawProductID string) (bool, error) {
	productID, err := parseID(rawProductID, "product")
	if err != nil {
		return false, err
	}
	return s.Repo.RemoveFromCart(ctx, userID, productID)
}
