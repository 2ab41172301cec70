package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/config"
	"github.com/swissconsulthub/intake-engine/internal/simulation"
	"github.com/swissconsulthub/intake-engine/internal/storage"
	"github.com/swissconsulthub/intake-engine/internal/submission"
	"github.com/swissconsulthub/intake-engine/internal/wizard"
	"github.com/swissconsulthub/intake-engine/tests/mocks"
)

func newTestRouter(t *testing.T) (*mux.Router, *mocks.MockDocumentValidator) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := storage.NewRedisSessionStore(client)

	cfg := &config.Config{
		Simulation: config.SimulationConfig{
			RateMinWithProperty:            "0.069",
			RateMaxWithProperty:            "0.109",
			RateMinWithoutProperty:         "0.069",
			RateMaxWithoutProperty:         "0.109",
			GuaranteeFactorWithProperty:    "0.001845",
			GuaranteeFactorWithoutProperty: "0.001845",
		},
	}

	simService := simulation.NewService(
		simulation.NewEngine(cfg),
		simulation.NewStore(sessions, time.Hour),
	)

	store := &mocks.MockRequestStore{}
	uploads := &mocks.MockFileStorage{}
	validator := &mocks.MockDocumentValidator{}
	adapter := submission.NewAdapter(store, uploads, nil, zap.NewNop())

	drafts := wizard.NewDraftStore(sessions, time.Hour, time.Millisecond, zap.NewNop())
	machine := wizard.NewMachine(drafts, simService, adapter, validator, wizard.DefaultRequirements(), zap.NewNop())

	h := NewIntakeHandler(simService, machine, nil, 1<<20)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/simulations", h.Simulate).Methods("POST")
	api.HandleFunc("/simulations/latest", h.LastSimulation).Methods("GET")
	api.HandleFunc("/intake", h.OpenWizard).Methods("GET")
	api.HandleFunc("/intake/fields", h.UpdateFields).Methods("PATCH")
	api.HandleFunc("/intake/next", h.Next).Methods("POST")
	api.HandleFunc("/intake/documents/{type}", h.AttachDocument).Methods("POST")

	return router, validator
}

func doJSON(t *testing.T, router *mux.Router, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSimulate_ReturnsSnapshotAndPersistsIt(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/simulations", "s1", map[string]interface{}{
		"amount":              10000,
		"duration_months":     36,
		"guarantee_requested": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			GuaranteeFee string `json:"guarantee_fee"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "18.45", envelope.Data.GuaranteeFee)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/simulations/latest", "s1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLastSimulation_NoSnapshotIs404(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/simulations/latest", "fresh", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulate_MissingAmountOrDurationIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/simulations", "s1", map[string]interface{}{
		"duration_months": 36,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/simulations", "s1", map[string]interface{}{
		"amount": 10000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A rejected simulation must not leave a snapshot behind.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/simulations/latest", "s1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulate_MissingSessionHeaderIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/simulations", "", map[string]interface{}{
		"amount": 10000, "duration_months": 36,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNext_IncompleteStepIs422WithFieldMap(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/intake", "s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/intake/next", "s1", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var envelope struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Campo obbligatorio", envelope.Fields["first_name"])
}

func TestUpdateFields_MergesIntoDraft(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/intake", "s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/intake/fields", "s1", map[string]interface{}{
		"first_name": "Maria",
		"email":      "maria@example.ch",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			FirstName string `json:"first_name"`
			Email     string `json:"email"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Maria", envelope.Data.FirstName)
	assert.Equal(t, "maria@example.ch", envelope.Data.Email)
}

func TestAttachDocument_MultipartUploadLandsInSlot(t *testing.T) {
	router, validator := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/intake", "s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	validator.On("Validate", mock.Anything).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "id.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/documents/identity", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Session-ID", "s1")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusCreated, res.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/intake", "s1", nil)
	var envelope struct {
		Data struct {
			Documents map[string]struct {
				Name string `json:"name"`
			} `json:"documents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "id.pdf", envelope.Data.Documents["identity"].Name)
}
