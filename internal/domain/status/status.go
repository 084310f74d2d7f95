// Package status defines the order-status reference data.
package status

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a status code is not in the reference table.
var ErrNotFound = errors.New("status not found")

// Status is one entry of the order-status reference table.
type Status struct {
	Code        string
	DisplayName string
	Description string
	IsActive    bool
	ViewOrder   int
}

// Repository defines lookup operations for statuses.
type Repository interface {
	List(ctx context.Context) ([]Status, error)
	GetByCode(ctx context.Context, code string) (*Status, error)
}
