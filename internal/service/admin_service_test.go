package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/notify"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
	"github.com/swissconsulthub/intake-engine/tests/mocks"
)

func newTestService() (*AdminService, *mocks.MockRequestRepository, *notify.Bus) {
	repo := &mocks.MockRequestRepository{}
	attachments := &mocks.MockAttachmentRepository{}
	bus := notify.NewBus(zap.NewNop(), 0)
	return NewAdminService(repo, attachments, bus, nil, zap.NewNop()), repo, bus
}

func strPtr(s string) *string { return &s }

func TestListRequests_StatusFilterSelectsRepositoryPath(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	all := []*domain.ConsultingRequest{{ID: uuid.New()}, {ID: uuid.New()}}
	repo.On("GetAll", mock.Anything).Return(all, nil)
	repo.On("GetByStatus", mock.Anything, domain.RequestStatusNew).Return(all[:1], nil)

	requests, err := svc.ListRequests(ctx, "")
	require.NoError(t, err)
	assert.Len(t, requests, 2)

	requests, err = svc.ListRequests(ctx, domain.RequestStatusNew)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestUpdateRequest_EmitsUpdatedEvent(t *testing.T) {
	svc, repo, bus := newTestService()
	ctx := context.Background()
	id := uuid.New()

	var received []notify.Event
	bus.On(notify.EventRequestUpdated, func(e notify.Event) { received = append(received, e) })

	patch := domain.UpdateRequestPatch{Status: strPtr(domain.RequestStatusInReview)}
	repo.On("Update", mock.Anything, id, patch).Return(nil)

	require.NoError(t, svc.UpdateRequest(ctx, id, patch))

	require.Len(t, received, 1)
	payload := received[0].Payload.(map[string]string)
	assert.Equal(t, id.String(), payload["id"])
}

func TestUpdateRequest_InvalidStatusRejectedBeforeRepository(t *testing.T) {
	svc, repo, _ := newTestService()

	patch := domain.UpdateRequestPatch{Status: strPtr("archived")}
	err := svc.UpdateRequest(context.Background(), uuid.New(), patch)

	assert.ErrorIs(t, err, customError.ErrValidationFailed)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteRequest_RepositoryFailureEmitsNothing(t *testing.T) {
	svc, repo, bus := newTestService()
	id := uuid.New()

	emitted := false
	bus.On(notify.EventRequestDeleted, func(notify.Event) { emitted = true })

	repo.On("Delete", mock.Anything, id).Return(errors.New("gone already"))

	err := svc.DeleteRequest(context.Background(), id)
	assert.Error(t, err)
	assert.False(t, emitted)
}

func TestBulkUpdateStatus_EmitsBulkCompleted(t *testing.T) {
	svc, repo, bus := newTestService()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	var received []notify.Event
	bus.On(notify.EventBulkCompleted, func(e notify.Event) { received = append(received, e) })

	repo.On("BulkUpdateStatus", mock.Anything, ids, domain.RequestStatusClosed).Return(nil)

	err := svc.BulkUpdateStatus(context.Background(), domain.BulkRequestAction{
		IDs:    ids,
		Status: domain.RequestStatusClosed,
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	payload := received[0].Payload.(map[string]interface{})
	assert.Equal(t, "update", payload["action"])
	assert.Equal(t, 3, payload["count"])
}

func TestBulkUpdateStatus_EmptyBatchRejected(t *testing.T) {
	svc, repo, _ := newTestService()

	err := svc.BulkUpdateStatus(context.Background(), domain.BulkRequestAction{Status: domain.RequestStatusClosed})

	assert.ErrorIs(t, err, customError.ErrValidationFailed)
	repo.AssertNotCalled(t, "BulkUpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestFlagStaleRequests_ReportsCount(t *testing.T) {
	svc, repo, bus := newTestService()

	var received []notify.Event
	bus.On(notify.EventBulkCompleted, func(e notify.Event) { received = append(received, e) })

	stale := []uuid.UUID{uuid.New(), uuid.New()}
	repo.On("FlagStale", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) > 71*time.Hour && time.Since(cutoff) < 73*time.Hour
	})).Return(stale, nil)

	count, err := svc.FlagStaleRequests(context.Background(), 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, received, 1)
}

func TestFlagStaleRequests_NothingStaleEmitsNothing(t *testing.T) {
	svc, repo, bus := newTestService()

	emitted := false
	bus.On(notify.EventBulkCompleted, func(notify.Event) { emitted = true })

	repo.On("FlagStale", mock.Anything, mock.Anything).Return([]uuid.UUID{}, nil)

	count, err := svc.FlagStaleRequests(context.Background(), 72*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.False(t, emitted)
}

func TestPendingReviewSummary_CountsPerStatus(t *testing.T) {
	svc, repo, _ := newTestService()

	repo.On("GetByStatus", mock.Anything, domain.RequestStatusNew).
		Return([]*domain.ConsultingRequest{{}, {}}, nil)
	repo.On("GetByStatus", mock.Anything, domain.RequestStatusInReview).
		Return([]*domain.ConsultingRequest{{}}, nil)
	repo.On("GetByStatus", mock.Anything, domain.RequestStatusStale).
		Return([]*domain.ConsultingRequest{}, nil)

	summary, err := svc.PendingReviewSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary[domain.RequestStatusNew])
	assert.Equal(t, 1, summary[domain.RequestStatusInReview])
	assert.Equal(t, 0, summary[domain.RequestStatusStale])
}
