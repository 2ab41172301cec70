package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/metrics"
	"github.com/swissconsulthub/intake-engine/internal/notify"
	"github.com/swissconsulthub/intake-engine/internal/repository"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

// AdminService is the back-office side of the intake engine: listing,
// triaging and pruning the consulting requests the public wizard creates.
// Every mutation emits the matching bus event so dashboards refresh without
// polling.
type AdminService struct {
	RequestRepo    repository.RequestRepository
	AttachmentRepo repository.AttachmentRepository
	bus            *notify.Bus
	metrics        *metrics.Metrics
	validate       *validator.Validate
	log            *zap.Logger
}

func NewAdminService(
	requestRepo repository.RequestRepository,
	attachmentRepo repository.AttachmentRepository,
	bus *notify.Bus,
	m *metrics.Metrics,
	log *zap.Logger,
) *AdminService {
	return &AdminService{
		RequestRepo:    requestRepo,
		AttachmentRepo: attachmentRepo,
		bus:            bus,
		metrics:        m,
		validate:       validator.New(),
		log:            log,
	}
}

func (s *AdminService) ListRequests(ctx context.Context, status string) ([]*domain.ConsultingRequest, error) {
	var (
		requests []*domain.ConsultingRequest
		err      error
	)
	if status == "" {
		requests, err = s.RequestRepo.GetAll(ctx)
	} else {
		requests, err = s.RequestRepo.GetByStatus(ctx, status)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return requests, nil
}

func (s *AdminService) GetRequest(ctx context.Context, id uuid.UUID) (*domain.ConsultingRequest, error) {
	return s.RequestRepo.GetByID(ctx, id)
}

func (s *AdminService) GetAttachments(ctx context.Context, requestID uuid.UUID) ([]*domain.Attachment, error) {
	attachments, err := s.AttachmentRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return attachments, nil
}

func (s *AdminService) UpdateRequest(ctx context.Context, id uuid.UUID, patch domain.UpdateRequestPatch) error {
	if err := s.validate.Struct(patch); err != nil {
		return customError.NewBusinessError(customError.ErrCodeValidationFailed, err.Error(), customError.ErrValidationFailed)
	}

	if err := s.RequestRepo.Update(ctx, id, patch); err != nil {
		return err
	}

	s.emit(notify.EventRequestUpdated, map[string]string{"id": id.String()})
	return nil
}

func (s *AdminService) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	if err := s.RequestRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.emit(notify.EventRequestDeleted, map[string]string{"id": id.String()})
	return nil
}

func (s *AdminService) BulkUpdateStatus(ctx context.Context, action domain.BulkRequestAction) error {
	if err := s.validate.Struct(action); err != nil {
		return customError.NewBusinessError(customError.ErrCodeValidationFailed, err.Error(), customError.ErrValidationFailed)
	}

	if err := s.RequestRepo.BulkUpdateStatus(ctx, action.IDs, action.Status); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.emit(notify.EventBulkCompleted, map[string]interface{}{
		"action": "update",
		"count":  len(action.IDs),
	})
	return nil
}

func (s *AdminService) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return customError.NewBusinessError(customError.ErrCodeValidationFailed, "no request ids given", customError.ErrValidationFailed)
	}

	if err := s.RequestRepo.BulkDelete(ctx, ids); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.emit(notify.EventBulkCompleted, map[string]interface{}{
		"action": "delete",
		"count":  len(ids),
	})
	return nil
}

// FlagStaleRequests moves requests still untouched after the retention
// window to the stale status. Run nightly by the scheduler.
func (s *AdminService) FlagStaleRequests(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	ids, err := s.RequestRepo.FlagStale(ctx, cutoff)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	s.log.Info("flagged stale requests", zap.Int("count", len(ids)))
	s.emit(notify.EventBulkCompleted, map[string]interface{}{
		"action": "stale_sweep",
		"count":  len(ids),
	})
	return len(ids), nil
}

// PendingReviewSummary counts open requests per status for the weekly
// reminder job.
func (s *AdminService) PendingReviewSummary(ctx context.Context) (map[string]int, error) {
	summary := make(map[string]int)
	for _, status := range []string{domain.RequestStatusNew, domain.RequestStatusInReview, domain.RequestStatusStale} {
		requests, err := s.RequestRepo.GetByStatus(ctx, status)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		summary[status] = len(requests)
	}
	return summary, nil
}

// RecordCreated publishes the created event for a request that entered the
// system through the public intake path.
func (s *AdminService) RecordCreated(id uuid.UUID) {
	s.emit(notify.EventRequestCreated, map[string]string{"id": id.String()})
}

func (s *AdminService) emit(event notify.EventType, payload interface{}) {
	s.bus.Emit(event, payload)
	s.metrics.ObserveBusEvent(string(event))
}
