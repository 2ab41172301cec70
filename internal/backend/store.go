package backend

import (
	"context"

	"github.com/google/uuid"
	"github.com/swissconsulthub/intake-engine/internal/domain"
)

// RequestStore is the authoritative consulting-request backend as seen from
// this side of the wire. The REST implementation lives in Client; the admin
// process talks to the database directly through internal/repository.
type RequestStore interface {
	Create(ctx context.Context, request *domain.ConsultingRequest) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.UpdateRequestPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsultingRequest, error)
	GetAll(ctx context.Context) ([]*domain.ConsultingRequest, error)
	BulkUpdate(ctx context.Context, ids []uuid.UUID, status string) error
	BulkDelete(ctx context.Context, ids []uuid.UUID) error
}
