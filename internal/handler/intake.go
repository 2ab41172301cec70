package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/metrics"
	"github.com/swissconsulthub/intake-engine/internal/simulation"
	"github.com/swissconsulthub/intake-engine/internal/wizard"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
	"github.com/swissconsulthub/intake-engine/pkg/response"
)

// sessionHeader carries the anonymous browser session the wizard state is
// keyed by.
const sessionHeader = "X-Session-ID"

type IntakeHandler struct {
	simulations *simulation.Service
	machine     *wizard.Machine
	metrics     *metrics.Metrics
	validator   *validator.Validate
	maxUpload   int64
}

func NewIntakeHandler(simulations *simulation.Service, machine *wizard.Machine, m *metrics.Metrics, maxUpload int64) *IntakeHandler {
	return &IntakeHandler{
		simulations: simulations,
		machine:     machine,
		metrics:     m,
		validator:   validator.New(),
		maxUpload:   maxUpload,
	}
}

// Simulate computes the loan economics for the slider inputs and stores the
// snapshot for the session.
func (h *IntakeHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	var req domain.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, "Amount and duration are required", err)
		return
	}

	snapshot, err := h.simulations.Simulate(r.Context(), sessionID, simulation.Input{
		Amount:             req.Amount,
		DurationMonths:     req.DurationMonths,
		GuaranteeRequested: req.GuaranteeRequested,
		OwnsProperty:       req.OwnsProperty,
	})
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	h.metrics.ObserveSimulation()
	response.Success(w, snapshot)
}

// LastSimulation returns the session's current snapshot, if any.
func (h *IntakeHandler) LastSimulation(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	snapshot, err := h.simulations.LastSnapshot(r.Context(), sessionID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, snapshot)
}

// OpenWizard loads or creates the session's draft.
func (h *IntakeHandler) OpenWizard(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	draft, err := h.machine.Open(r.Context(), sessionID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, draft)
}

// Requirements returns the document slots the final step expects.
func (h *IntakeHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.machine.Requirements())
}

// UpdateFields merges a partial field map into the draft.
func (h *IntakeHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	draft, err := h.machine.UpdateFields(r.Context(), sessionID, fields)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, draft)
}

type stepResponse struct {
	Step int `json:"step"`
}

// Next validates the current step and advances on success. Validation
// failures come back as a 422 with the field error map.
func (h *IntakeHandler) Next(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	step, fieldErrs, err := h.machine.Next(r.Context(), sessionID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		response.FieldErrors(w, "Step has missing or invalid fields", fieldErrs)
		return
	}

	response.Success(w, stepResponse{Step: int(step)})
}

// Previous steps back without validating.
func (h *IntakeHandler) Previous(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	step, err := h.machine.Previous(r.Context(), sessionID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, stepResponse{Step: int(step)})
}

// AttachDocument accepts one multipart file for a named slot.
func (h *IntakeHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	documentType := mux.Vars(r)["type"]

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		response.Error(w, http.StatusRequestEntityTooLarge, "File too large", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Missing file field", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		response.InternalServerError(w, "Could not read upload", err)
		return
	}

	upload := &domain.PendingUpload{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}
	if err := h.machine.AttachDocument(r.Context(), sessionID, documentType, upload); err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Created(w, map[string]string{"document_type": documentType, "name": header.Filename})
}

// RemoveDocument clears a slot.
func (h *IntakeHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.machine.RemoveDocument(r.Context(), sessionID, mux.Vars(r)["type"]); err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, nil)
}

// Submit finalizes the wizard from the last step.
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}

	result, fieldErrs, err := h.machine.Submit(r.Context(), sessionID)
	if err != nil {
		writeBusinessError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		response.FieldErrors(w, "Step has missing or invalid fields", fieldErrs)
		return
	}
	if !result.Success {
		response.Error(w, http.StatusBadGateway, result.Error, nil)
		return
	}

	response.Created(w, result)
}

func (h *IntakeHandler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		response.BadRequest(w, "Missing "+sessionHeader+" header", nil)
		return "", false
	}
	return sessionID, true
}

// writeBusinessError maps a BusinessError code to its HTTP status.
func writeBusinessError(w http.ResponseWriter, err error) {
	var businessErr *customError.BusinessError
	if !errors.As(err, &businessErr) {
		response.InternalServerError(w, "Internal server error", err)
		return
	}

	switch businessErr.Code {
	case customError.ErrCodeDraftNotFound,
		customError.ErrCodeSnapshotNotFound,
		customError.ErrCodeRequestNotFound:
		response.NotFound(w, businessErr.Message)
	case customError.ErrCodeSubmissionInFlight,
		customError.ErrCodeNotOnFinalStep:
		response.Conflict(w, businessErr.Message, businessErr.Err)
	case customError.ErrCodeCircuitOpen,
		customError.ErrCodeRequestTimeout:
		response.ServiceUnavailable(w, businessErr.Message, businessErr.Err)
	case customError.ErrCodeFileTooLarge:
		response.Error(w, http.StatusRequestEntityTooLarge, businessErr.Message, businessErr.Err)
	case customError.ErrCodeInvalidFileType:
		response.Error(w, http.StatusUnsupportedMediaType, businessErr.Message, businessErr.Err)
	case customError.ErrCodeValidationFailed:
		response.BadRequest(w, businessErr.Message, businessErr.Err)
	default:
		response.InternalServerError(w, businessErr.Message, businessErr.Err)
	}
}
