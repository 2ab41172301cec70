package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceCategory is the closed set of consulting services a request can be
// filed under.
type ServiceCategory string

const (
	CategoryCredit     ServiceCategory = "credit"
	CategoryInsurance  ServiceCategory = "insurance"
	CategoryRealEstate ServiceCategory = "realestate"
	CategoryLegal      ServiceCategory = "legal"
	CategoryMedical    ServiceCategory = "medical"
	CategoryTax        ServiceCategory = "tax"
	CategoryJob        ServiceCategory = "job"
)

// Request lifecycle statuses used by the admin back office.
const (
	RequestStatusNew      = "new"
	RequestStatusInReview = "in_review"
	RequestStatusStale    = "stale"
	RequestStatusClosed   = "closed"
)

// ConsultingRequest is the normalized record every form variant collapses
// into. Form-specific extras travel in the opaque Notes blob.
type ConsultingRequest struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	FirstName   string              `json:"first_name" db:"first_name"`
	LastName    string              `json:"last_name" db:"last_name"`
	Email       string              `json:"email" db:"email"`
	Phone       string              `json:"phone" db:"phone"`
	ServiceType ServiceCategory     `json:"service_type" db:"service_type"`
	Description string              `json:"description" db:"description"`
	Amount      decimal.NullDecimal `json:"amount" db:"amount"`
	Address     string              `json:"address" db:"address"`
	DateOfBirth string              `json:"date_of_birth" db:"date_of_birth"`
	Status      string              `json:"status" db:"status"`
	Notes       json.RawMessage     `json:"notes" db:"notes"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// Attachment is a stored file belonging to a consulting request.
type Attachment struct {
	ID           uuid.UUID `json:"id" db:"id"`
	RequestID    uuid.UUID `json:"request_id" db:"request_id"`
	Name         string    `json:"name" db:"name"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	Size         int64     `json:"size" db:"size"`
	URL          string    `json:"url" db:"url"`
	Path         string    `json:"path" db:"path"`
	DocumentType string    `json:"document_type" db:"document_type"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// PendingUpload is a file captured by a form, waiting to be attached to a
// request once it exists.
type PendingUpload struct {
	DocumentType string
	Name         string
	MimeType     string
	Data         []byte
}

// DTOs for admin requests and responses

type UpdateRequestPatch struct {
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=new in_review stale closed"`
	Description *string `json:"description,omitempty"`
}

type BulkRequestAction struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
	Status string      `json:"status,omitempty" validate:"omitempty,oneof=new in_review stale closed"`
}
