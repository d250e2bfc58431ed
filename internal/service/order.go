package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

const OrderPrefix = "COD_"

type OrderService struct {
	Repo *repo.GormRepo
	Now  func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func NewOrderID() string { return OrderPrefix + uuid.NewString() }

// PlaceOrder snapshots the cart into an order and clears it in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string) (*models.Order, error) {
	var order *models.Order
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		lines, err := tx.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("user %s: %w", userID, ErrEmptyCart)
		}

		o := &models.Order{
			OrderID:      NewOrderID(),
			PaymentID:    models.PaymentCOD,
			UserID:       userID,
			PurchaseDate: s.now(),
			Lines:        make([]models.OrderLine, 0, len(lines)),
		}
		for _, l := range lines {
			ol := models.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity, Name: "Unavailable product"}
			if l.Product != nil {
				ol.Name = l.Product.Name
				ol.Price = l.Product.Price
			}
			o.FinalPrice += ol.Subtotal()
			o.Lines = append(o.Lines, ol)
		}

		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.DeleteAllFromCart(ctx, userID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, userID string) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, userID)
}
