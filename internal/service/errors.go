package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation")           // 400
	ErrEmptyCart           = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrInsufficientStock   = errors.New("insufficient stock")   // 400
	ErrPriceMismatch       = errors.New("price mismatch")       // 400
	ErrNotFound            = errors.New("not found")            // 404
	ErrConflict            = errors.New("conflict")             // 409
	ErrDuplicateRequest    = errors.New("request in progress")  // 409
	ErrInvalidCredentials  = errors.New("invalid credentials")  // 401
	ErrInvalidRefreshToken = errors.New("invalid refresh token") // 401
)

// InsufficientStockError names the product that could not be reserved.
// Name is empty when the product does not exist.
type InsufficientStockError struct {
	ProductID uint
	Name      string
}

func (e *InsufficientStockError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %q", e.Name)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type PriceMismatchError struct {
	ProductID uint
	Name      string
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price for product %q has changed", e.Name)
}

func (e *PriceMismatchError) Is(target error) bool { return target == ErrPriceMismatch }
