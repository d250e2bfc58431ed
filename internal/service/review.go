package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type ReviewService struct {
	Repo *repo.GormRepo
	Now  func() time.Time
}

type ReviewInput struct {
	Rating int
	Body   string
}

func (s *ReviewService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func validateReview(in ReviewInput) (ReviewInput, error) {
	in.Body = strings.TrimSpace(in.Body)
	if in.Rating < 1 || in.Rating > 5 {
		return in, invalid("Rating must be between 1 and 5")
	}
	if in.Body == "" {
		return in, invalid("Review text is required")
	}
	return in, nil
}

func (s *ReviewService) Add(ctx context.Context, user *models.User, rawProductID string, in ReviewInput) (*models.Review, error) {
	productID, err := parseID(rawProductID, "product")
	if err != nil {
		return nil, err
	}
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		return nil, notFound(err, "product")
	}
	in, err = validateReview(in)
	if err != nil {
		return nil, err
	}

	rev := models.Review{
		ProductID: productID,
		UserID:    user.ID,
		Author:    user.Username,
		Rating:    in.Rating,
		Body:      in.Body,
		Date:      s.now(),
	}
	if err := s.Repo.CreateReview(ctx, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// owned loads a review under its product and checks the caller wrote it.
func (s *ReviewService) owned(ctx context.Context, user *models.User, rawProductID, rawReviewID string) (*models.Review, error) {
	productID, err := parseID(rawProductID, "product")
	if err != nil {
		return nil, err
	}
	reviewID, err := parseID(rawReviewID, "review")
	if err != nil {
		return nil, err
	}
	rev, err := s.Repo.GetReview(ctx, productID, reviewID)
	if err != nil {
		return nil, notFound(err, "review")
	}
	if user == nil || rev.UserID != user.ID {
		return nil, fmt.Errorf("review %s: %w", rev.ID, ErrForbidden)
	}
	return rev, nil
}

func (s *ReviewService) GetForEdit(ctx context.Context, user *models.User, productID, reviewID string) (*models.Review, error) {
	return s.owned(ctx, user, productID, reviewID)
}

func (s *ReviewService) Update(ctx context.Context, user *models.User, productID, reviewID string, in ReviewInput) (*models.Review, error) {
	rev, err := s.owned(ctx, user, productID, reviewID)
	if err != nil {
		return nil, err
	}
	in, err = validateReview(in)
	if err != nil {
		return nil, err
	}
	rev.Rating = in.Rating
	rev.Body = in.Body
	rev.Date = s.now()
	if err := s.Repo.UpdateReview(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *ReviewService) Delete(ctx context.Context, user *models.User, productID, reviewID string) error {
	rev, err := s.owned(ctx, user, productID, reviewID)
	if err != nil {
		return err
	}
	return s.Repo.DeleteReview(ctx, rev.ID)
}
