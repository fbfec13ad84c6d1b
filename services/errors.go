package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ErrProductUnavailable matches any pricing failure caused by a menu item
// that cannot currently be sold.
var ErrProductUnavailable = errors.New("menu item unavailable")

// ProductUnavailableError carries which item blocked the order and why.
type ProductUnavailableError struct {
	CatalogItemID uuid.UUID
	Name          string
	Cause         string
}

func (e *ProductUnavailableError) Error() string {
	name := e.Name
	if name == "" {
		name = e.CatalogItemID.String()
	}
	return fmt.Sprintf("menu item %s unavailable: %s", name, e.Cause)
}

func (e *ProductUnavailableError) Is(target error) bool {
	return target == ErrProductUnavailable
}
