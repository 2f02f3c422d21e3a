package repository

import (
	"context"
	"errors"
	"wxsend/internal/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no delivery matches the requested id.
var ErrNotFound = errors.New("delivery not found")

// DeliveryRepository defines the interface for delivery history access
type DeliveryRepository interface {
	// Create stores a new delivery record
	Create(ctx context.Context, d *model.Delivery) error

	// UpdateResult updates status, local path, error and timing of a delivery
	UpdateResult(ctx context.Context, d *model.Delivery) error

	// GetByID retrieves a delivery by ID
	GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error)

	// List retrieves deliveries newest first with pagination
	List(ctx context.Context, limit, offset int) ([]model.Delivery, error)

	// Close releases the underlying storage
	Close() error
}
