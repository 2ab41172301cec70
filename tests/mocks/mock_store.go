package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/files"
)

type MockRequestStore struct {
	mock.Mock
}

func (m *MockRequestStore) Create(ctx context.Context, request *domain.ConsultingRequest) (uuid.UUID, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockRequestStore) Update(ctx context.Context, id uuid.UUID, patch domain.UpdateRequestPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockRequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ConsultingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConsultingRequest), args.Error(1)
}

func (m *MockRequestStore) GetAll(ctx context.Context) ([]*domain.ConsultingRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConsultingRequest), args.Error(1)
}

func (m *MockRequestStore) BulkUpdate(ctx context.Context, ids []uuid.UUID, status string) error {
	args := m.Called(ctx, ids, status)
	return args.Error(0)
}

func (m *MockRequestStore) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Upload(ctx context.Context, ownerID uuid.UUID, name, documentType string, data []byte, onProgress files.ProgressFunc) (*files.UploadResult, error) {
	args := m.Called(ctx, ownerID, name, documentType, data, onProgress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*files.UploadResult), args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, ownerID uuid.UUID, storedName string) error {
	args := m.Called(ctx, ownerID, storedName)
	return args.Error(0)
}

type MockDocumentValidator struct {
	mock.Mock
}

func (m *MockDocumentValidator) Validate(upload *domain.PendingUpload) error {
	args := m.Called(upload)
	return args.Error(0)
}
