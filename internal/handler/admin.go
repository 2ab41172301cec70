package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/service"
	"github.com/swissconsulthub/intake-engine/pkg/response"
)

type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// ListRequests returns all consulting requests, optionally filtered by the
// status query parameter.
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, requests)
}

func (h *AdminHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	request, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, request)
}

func (h *AdminHandler) GetAttachments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	attachments, err := h.service.GetAttachments(r.Context(), id)
	if err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, attachments)
}

func (h *AdminHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	var patch domain.UpdateRequestPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.service.UpdateRequest(r.Context(), id, patch); err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, nil)
}

func (h *AdminHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteRequest(r.Context(), id); err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, nil)
}

func (h *AdminHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var action domain.BulkRequestAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.service.BulkUpdateStatus(r.Context(), action); err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, map[string]int{"count": len(action.IDs)})
}

func (h *AdminHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var action domain.BulkRequestAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.service.BulkDelete(r.Context(), action.IDs); err != nil {
		writeBusinessError(w, err)
		return
	}

	response.Success(w, map[string]int{"count": len(action.IDs)})
}

func (h *AdminHandler) requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid request id", err)
		return uuid.Nil, false
	}
	return id, true
}
