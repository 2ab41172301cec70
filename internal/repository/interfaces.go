package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swissconsulthub/intake-engine/internal/domain"
)

// RequestRepository defines the interface for consulting request data operations
type RequestRepository interface {
	// Create inserts a new consulting request
	Create(ctx context.Context, request *domain.ConsultingRequest) error

	// GetByID retrieves a request by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsultingRequest, error)

	// GetAll retrieves all requests, newest first
	GetAll(ctx context.Context) ([]*domain.ConsultingRequest, error)

	// GetByStatus retrieves all requests in the given status, newest first
	GetByStatus(ctx context.Context, status string) ([]*domain.ConsultingRequest, error)

	// Update applies a patch to a request
	Update(ctx context.Context, id uuid.UUID, patch domain.UpdateRequestPatch) error

	// Delete removes a request and its attachment rows
	Delete(ctx context.Context, id uuid.UUID) error

	// BulkUpdateStatus moves a batch of requests to the given status
	BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status string) error

	// BulkDelete removes a batch of requests
	BulkDelete(ctx context.Context, ids []uuid.UUID) error

	// FlagStale moves requests still 'new' and older than the cutoff to 'stale',
	// returning the affected IDs
	FlagStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// AttachmentRepository defines the interface for attachment data operations
type AttachmentRepository interface {
	// Create inserts a new attachment record
	Create(ctx context.Context, attachment *domain.Attachment) error

	// GetByRequestID retrieves all attachments for a request
	GetByRequestID(ctx context.Context, requestID uuid.UUID) ([]*domain.Attachment, error)

	// Delete removes an attachment record
	Delete(ctx context.Context, id uuid.UUID) error
}
