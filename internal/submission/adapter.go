package submission

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/backend"
	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/files"
	"github.com/swissconsulthub/intake-engine/internal/metrics"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

// sourceTag identifies where normalized requests originated.
const sourceTag = "website"

// serviceAliases maps the free-text service labels the various forms use to
// the closed category set. Lookups are case-insensitive on trimmed input.
var serviceAliases = map[string]domain.ServiceCategory{
	"credit":         domain.CategoryCredit,
	"credito":        domain.CategoryCredit,
	"kredit":         domain.CategoryCredit,
	"loan":           domain.CategoryCredit,
	"prestito":       domain.CategoryCredit,
	"insurance":      domain.CategoryInsurance,
	"assicurazione":  domain.CategoryInsurance,
	"versicherung":   domain.CategoryInsurance,
	"realestate":     domain.CategoryRealEstate,
	"real estate":    domain.CategoryRealEstate,
	"immobiliare":    domain.CategoryRealEstate,
	"immobilien":     domain.CategoryRealEstate,
	"legal":          domain.CategoryLegal,
	"legale":         domain.CategoryLegal,
	"recht":          domain.CategoryLegal,
	"medical":        domain.CategoryMedical,
	"medico":         domain.CategoryMedical,
	"salute":         domain.CategoryMedical,
	"tax":            domain.CategoryTax,
	"tasse":          domain.CategoryTax,
	"fiscale":        domain.CategoryTax,
	"steuern":        domain.CategoryTax,
	"job":            domain.CategoryJob,
	"lavoro":         domain.CategoryJob,
	"job consulting": domain.CategoryJob,
	"jobcoaching":    domain.CategoryJob,
}

// Payload is the superset of fields any of the form variants can produce.
// Form-specific extras travel in Extra and end up in the request's notes.
type Payload struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	ServiceType string
	Description string
	Amount      *decimal.Decimal
	Address     string
	DateOfBirth string
	Extra       map[string]interface{}
	Files       []*domain.PendingUpload
}

// Result reports the submission outcome. Success tracks request creation
// only: attachment upload is best-effort and never fails the submission.
type Result struct {
	Success   bool      `json:"success"`
	RequestID uuid.UUID `json:"request_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Adapter normalizes heterogeneous form payloads into one create-request
// call followed by sequential file uploads.
type Adapter struct {
	store   backend.RequestStore
	storage files.FileStorage
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewAdapter(store backend.RequestStore, storage files.FileStorage, m *metrics.Metrics, log *zap.Logger) *Adapter {
	return &Adapter{store: store, storage: storage, metrics: m, log: log}
}

// Submit creates the normalized consulting request and then attaches any
// files. The request must exist before any upload is attempted; an upload
// failure after creation is logged and tolerated (the request stands without
// its attachment, left for an operator to resolve).
func (a *Adapter) Submit(ctx context.Context, payload *Payload) Result {
	if payload.FirstName == "" || payload.LastName == "" || payload.Email == "" {
		return Result{Success: false, Error: customError.ErrMissingContact.Error()}
	}

	category := a.resolveCategory(payload.ServiceType)
	notes, err := a.buildNotes(payload)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	request := &domain.ConsultingRequest{
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Email:       payload.Email,
		Phone:       payload.Phone,
		ServiceType: category,
		Description: payload.Description,
		Address:     payload.Address,
		DateOfBirth: payload.DateOfBirth,
		Status:      domain.RequestStatusNew,
		Notes:       notes,
	}
	if payload.Amount != nil {
		request.Amount = decimal.NewNullDecimal(*payload.Amount)
	}

	requestID, err := a.store.Create(ctx, request)
	if err != nil {
		a.log.Error("request creation failed", zap.Error(err))
		return Result{Success: false, Error: err.Error()}
	}

	a.metrics.ObserveSubmission(string(category))
	a.uploadFiles(ctx, requestID, payload.Files)

	return Result{Success: true, RequestID: requestID}
}

// uploadFiles attaches the batch sequentially in slot order so progress is
// attributable to "file i of n". Failures do not roll anything back.
func (a *Adapter) uploadFiles(ctx context.Context, requestID uuid.UUID, uploads []*domain.PendingUpload) {
	for i, upload := range uploads {
		if upload == nil {
			continue
		}
		_, err := a.storage.Upload(ctx, requestID, upload.Name, upload.DocumentType, upload.Data, nil)
		if err != nil {
			a.log.Warn("attachment upload failed, request stands without it",
				zap.String("request_id", requestID.String()),
				zap.String("document_type", upload.DocumentType),
				zap.Int("file_index", i),
				zap.Error(err),
			)
		}
	}
}

func (a *Adapter) resolveCategory(serviceType string) domain.ServiceCategory {
	normalized := strings.ToLower(strings.TrimSpace(serviceType))
	if category, ok := serviceAliases[normalized]; ok {
		return category
	}

	// Unrecognized labels fall back to credit rather than failing. The
	// original behaves this way; kept pending product clarification.
	a.log.Warn("unrecognized service type, defaulting to credit",
		zap.String("service_type", serviceType),
	)
	return domain.CategoryCredit
}

func (a *Adapter) buildNotes(payload *Payload) (json.RawMessage, error) {
	notes := make(map[string]interface{}, len(payload.Extra)+2)
	for key, value := range payload.Extra {
		notes[key] = value
	}
	notes["submitted_at"] = time.Now().Format(time.RFC3339)
	notes["source"] = sourceTag

	data, err := json.Marshal(notes)
	if err != nil {
		return nil, customError.WrapBackendError(err)
	}
	return data, nil
}
