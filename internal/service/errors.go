package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrValidation         = errors.New("validation")
	ErrInvalidID          = errors.New("invalid id")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyCart          = errors.New("empty cart")
)

var validate = validator.New()

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "validation: " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UserMessage returns the user-facing text of a validation error, or def.
func UserMessage(err error, def string) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return def
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func parseID(raw, what string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s %q: %w", what, raw, ErrInvalidID)
	}
	return id.String(), nil
}

type Upload struct {
	Data        []byte
	ContentType string
}

func (u Upload) Empty() bool { return len(u.Data) == 0 }
