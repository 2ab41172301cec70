package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/breaker"
	"github.com/swissconsulthub/intake-engine/internal/domain"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	b := breaker.New(zap.NewNop(), 3, 30*time.Second)
	client := NewClient(server.URL, timeout, b, nil, zap.NewNop())
	return client, server
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status >= 200 && status < 300,
		"data":    data,
	})
}

func TestClient_CreateReturnsRequestID(t *testing.T) {
	wantID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/requests", r.URL.Path)

		var req domain.ConsultingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Maria", req.FirstName)

		writeEnvelope(w, http.StatusCreated, map[string]string{"id": wantID.String()})
	}), time.Second)

	id, err := client.Create(context.Background(), &domain.ConsultingRequest{
		FirstName:   "Maria",
		LastName:    "Bernasconi",
		Email:       "maria@example.ch",
		ServiceType: domain.CategoryCredit,
	})
	require.NoError(t, err)
	assert.Equal(t, wantID, id)
}

func TestClient_GetAll(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []map[string]interface{}{
			{"id": uuid.New().String(), "first_name": "A"},
			{"id": uuid.New().String(), "first_name": "B"},
		})
	}), time.Second)

	requests, err := client.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, requests, 2)
}

func TestClient_NotFoundIsDistinguishable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, nil)
	}), time.Second)

	_, err := client.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, customError.ErrRequestNotFound)
}

func TestClient_TimeoutSurfacesAsTimeoutError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeEnvelope(w, http.StatusOK, nil)
	}), 30*time.Millisecond)

	_, err := client.GetAll(context.Background())
	assert.ErrorIs(t, err, customError.ErrRequestTimeout)
}

func TestClient_BreakerStopsHammeringAfterThreshold(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeEnvelope(w, http.StatusInternalServerError, nil)
	}), time.Second)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.GetAll(ctx)
		require.Error(t, err)
	}
	require.EqualValues(t, 3, hits.Load())

	// Breaker is open now: no further network attempts.
	_, err := client.GetAll(ctx)
	assert.ErrorIs(t, err, customError.ErrCircuitOpen)
	assert.EqualValues(t, 3, hits.Load())
}

func TestClient_BulkUpdateSendsIDsAndStatus(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/requests/bulk/update", r.URL.Path)

		var action domain.BulkRequestAction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&action))
		assert.Len(t, action.IDs, 2)
		assert.Equal(t, domain.RequestStatusInReview, action.Status)

		writeEnvelope(w, http.StatusOK, nil)
	}), time.Second)

	err := client.BulkUpdate(context.Background(), ids, domain.RequestStatusInReview)
	assert.NoError(t, err)
}
