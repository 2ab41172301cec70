package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/domain"
	"github.com/swissconsulthub/intake-engine/internal/files"
	"github.com/swissconsulthub/intake-engine/internal/simulation"
	"github.com/swissconsulthub/intake-engine/internal/submission"
	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

// DefaultRequirements is the document-requirements list used when none is
// provided by the back office. Slot order here is upload order.
func DefaultRequirements() []domain.DocumentRequirement {
	return []domain.DocumentRequirement{
		{Type: "identity", Label: "Documento d'identità", Optional: false},
		{Type: "salary_statement_1", Label: "Ultimo certificato di salario", Optional: false},
		{Type: "salary_statement_2", Label: "Certificato di salario (mese precedente)", Optional: true},
		{Type: "salary_statement_3", Label: "Certificato di salario (due mesi prima)", Optional: true},
		{Type: "residence_permit", Label: "Permesso di soggiorno", Optional: true},
		{Type: "debt_registry_extract", Label: "Estratto esecuzioni", Optional: true},
		{Type: "bank_statement", Label: "Estratto conto bancario", Optional: true},
		{Type: "rental_contract", Label: "Contratto di locazione", Optional: true},
		{Type: "health_insurance_card", Label: "Tessera cassa malati", Optional: true},
		{Type: "other", Label: "Altro documento", Optional: true},
	}
}

// sessionState is the volatile per-session half of the wizard: document
// bytes, the last validation result and the single-flight submit flag. None
// of this survives a process restart; only the draft in the session store
// does. lastAccess drives idle eviction: cached state, file bytes included,
// must not outlive the persisted draft's TTL.
type sessionState struct {
	draft      *domain.IntakeDraft
	files      map[string]*domain.PendingUpload
	errors     domain.FieldErrors
	submitting bool
	lastAccess time.Time
}

// Machine drives the strictly ordered six-step intake wizard. All state
// transitions go through it: Next gates on the current step's validator,
// Previous is unconditional, Submit is only honored on the final step and is
// single-flight per session.
type Machine struct {
	drafts       *DraftStore
	snapshots    *simulation.Service
	adapter      *submission.Adapter
	validator    files.DocumentValidator
	requirements []domain.DocumentRequirement
	log          *zap.Logger
	onClose      func(sessionID string)
	idleTTL      time.Duration
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionState
}

func NewMachine(
	drafts *DraftStore,
	snapshots *simulation.Service,
	adapter *submission.Adapter,
	validator files.DocumentValidator,
	requirements []domain.DocumentRequirement,
	log *zap.Logger,
) *Machine {
	return &Machine{
		drafts:       drafts,
		snapshots:    snapshots,
		adapter:      adapter,
		validator:    validator,
		requirements: requirements,
		log:          log,
		idleTTL:      drafts.ttl,
		now:          time.Now,
		sessions:     make(map[string]*sessionState),
	}
}

// SetOnClose registers the hook invoked after a successful submission, once
// all persisted state for the session is cleared.
func (m *Machine) SetOnClose(fn func(sessionID string)) {
	m.onClose = fn
}

// Requirements returns the document-requirements list the wizard enforces.
func (m *Machine) Requirements() []domain.DocumentRequirement {
	return m.requirements
}

// Open loads or creates the draft for a session. A previously persisted
// draft resumes on its saved step; the last simulation snapshot, if any,
// pre-fills the loan context. File slots are never restored: the bytes
// cannot survive the serialization boundary, so the user re-attaches.
func (m *Machine) Open(ctx context.Context, sessionID string) (*domain.IntakeDraft, error) {
	m.mu.Lock()
	m.evictIdleLocked()
	if state, ok := m.sessions[sessionID]; ok {
		state.lastAccess = m.now()
		draft := cloneDraft(state.draft)
		m.mu.Unlock()
		return draft, nil
	}
	m.mu.Unlock()

	draft, err := m.drafts.Load(ctx, sessionID)
	if err != nil {
		if !isDraftNotFound(err) {
			return nil, err
		}
		draft = domain.NewIntakeDraft()
	}
	if !draft.CurrentStep.Valid() {
		draft.CurrentStep = domain.FirstStep
	}

	if snapshot, err := m.snapshots.LastSnapshot(ctx, sessionID); err == nil {
		draft.ApplySnapshot(snapshot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another goroutine may have opened the session meanwhile.
	if state, ok := m.sessions[sessionID]; ok {
		return cloneDraft(state.draft), nil
	}
	m.sessions[sessionID] = &sessionState{
		draft:      draft,
		files:      make(map[string]*domain.PendingUpload),
		errors:     make(domain.FieldErrors),
		lastAccess: m.now(),
	}
	m.drafts.ScheduleSave(sessionID, draft)
	return cloneDraft(draft), nil
}

// UpdateFields merges the given field values into the draft. Only the
// errors of the edited fields are cleared; the rest of the error map stays
// until the next validation run. Step index and document slots cannot be
// changed through this path.
func (m *Machine) UpdateFields(ctx context.Context, sessionID string, fields map[string]json.RawMessage) (*domain.IntakeDraft, error) {
	delete(fields, "current_step")
	delete(fields, "documents")

	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, customError.WrapStorageError(err)
	}
	if err := json.Unmarshal(data, state.draft); err != nil {
		return nil, fmt.Errorf("invalid field value: %w", err)
	}

	for field := range fields {
		delete(state.errors, field)
	}

	m.drafts.ScheduleSave(sessionID, state.draft)
	return cloneDraft(state.draft), nil
}

// Next validates the current step and advances on a clean result. With any
// unmet field the step does not change and the freshly recomputed error map
// is returned.
func (m *Machine) Next(ctx context.Context, sessionID string) (domain.Step, domain.FieldErrors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(sessionID)
	if err != nil {
		return 0, nil, err
	}

	errs := validateStep(state.draft, state.draft.CurrentStep, m.requirements, state.fileSet())
	state.errors = errs
	if !errs.Empty() {
		return state.draft.CurrentStep, cloneErrors(errs), nil
	}

	state.draft.CurrentStep = state.draft.CurrentStep.Next()
	m.drafts.ScheduleSave(sessionID, state.draft)
	return state.draft.CurrentStep, nil, nil
}

// Previous steps back unconditionally; the step being left is not
// re-validated.
func (m *Machine) Previous(ctx context.Context, sessionID string) (domain.Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(sessionID)
	if err != nil {
		return 0, err
	}

	state.draft.CurrentStep = state.draft.CurrentStep.Previous()
	m.drafts.ScheduleSave(sessionID, state.draft)
	return state.draft.CurrentStep, nil
}

// AttachDocument validates and stores a file into a slot. A failing file is
// rejected outright: the slot is cleared and a field-level error recorded,
// the file is never silently kept.
func (m *Machine) AttachDocument(ctx context.Context, sessionID, documentType string, upload *domain.PendingUpload) error {
	requirement := m.findRequirement(documentType)
	if requirement == nil {
		return fmt.Errorf("unknown document slot %q", documentType)
	}

	upload.DocumentType = documentType

	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(sessionID)
	if err != nil {
		return err
	}

	if _, occupied := state.draft.Documents[documentType]; !occupied && len(state.draft.Documents) >= domain.MaxDocumentSlots {
		return fmt.Errorf("document slots exhausted: %d already attached", len(state.draft.Documents))
	}

	if err := m.validator.Validate(upload); err != nil {
		delete(state.files, documentType)
		delete(state.draft.Documents, documentType)
		state.errors[documentType] = err.Error()
		m.drafts.ScheduleSave(sessionID, state.draft)
		return err
	}

	state.files[documentType] = upload
	state.draft.Documents[documentType] = &domain.DocumentMeta{
		Name:       upload.Name,
		Size:       int64(len(upload.Data)),
		MimeType:   upload.MimeType,
		AttachedAt: time.Now(),
	}
	delete(state.errors, documentType)
	m.drafts.ScheduleSave(sessionID, state.draft)
	return nil
}

// RemoveDocument clears a slot, bytes and metadata both.
func (m *Machine) RemoveDocument(ctx context.Context, sessionID, documentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.state(sessionID)
	if err != nil {
		return err
	}

	delete(state.files, documentType)
	delete(state.draft.Documents, documentType)
	m.drafts.ScheduleSave(sessionID, state.draft)
	return nil
}

// Errors returns the session's current field error map.
func (m *Machine) Errors(sessionID string) domain.FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return cloneErrors(state.errors)
}

// Submit freezes the draft, re-validates the final step and hands the
// normalized payload to the submission adapter. It is single-flight per
// session: a second call while one is in flight is rejected without a
// second request creation. On success every trace of the session is
// cleared; on failure everything is preserved so the user can retry without
// re-entering data.
func (m *Machine) Submit(ctx context.Context, sessionID string) (submission.Result, domain.FieldErrors, error) {
	m.mu.Lock()

	state, err := m.state(sessionID)
	if err != nil {
		m.mu.Unlock()
		return submission.Result{}, nil, err
	}

	if state.submitting {
		m.mu.Unlock()
		return submission.Result{}, nil, customError.WrapSubmissionInFlight(sessionID)
	}

	if state.draft.CurrentStep != domain.LastStep {
		m.mu.Unlock()
		return submission.Result{}, nil, customError.WrapNotOnFinalStep(int(state.draft.CurrentStep))
	}

	errs := validateStep(state.draft, domain.LastStep, m.requirements, state.fileSet())
	if !errs.Empty() {
		state.errors = errs
		m.mu.Unlock()
		return submission.Result{}, cloneErrors(errs), nil
	}

	state.submitting = true
	payload := m.buildPayload(state)
	m.mu.Unlock()

	result := m.adapter.Submit(ctx, payload)

	m.mu.Lock()
	state.submitting = false
	if !result.Success {
		m.mu.Unlock()
		return result, nil, nil
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := m.drafts.Clear(ctx, sessionID); err != nil {
		m.log.Warn("clearing draft after submission failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := m.snapshots.Reset(ctx, sessionID); err != nil {
		m.log.Warn("clearing snapshot after submission failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if m.onClose != nil {
		m.onClose(sessionID)
	}
	return result, nil, nil
}

// buildPayload normalizes the accumulated draft. Files are batched in slot
// order; empty optional slots are skipped (required ones were validated
// just before).
func (m *Machine) buildPayload(state *sessionState) *submission.Payload {
	draft := state.draft

	payload := &submission.Payload{
		FirstName:   draft.FirstName,
		LastName:    draft.LastName,
		Email:       draft.Email,
		Phone:       draft.Phone,
		ServiceType: string(domain.CategoryCredit),
		Description: fmt.Sprintf("Richiesta di credito: CHF %s su %d mesi", draft.LoanAmount.StringFixed(0), draft.LoanDurationMonths),
		Address:     fmt.Sprintf("%s %s, %s %s", draft.Street, draft.HouseNumber, draft.PostalCode, draft.City),
		DateOfBirth: draft.DateOfBirth,
		Extra:       draftExtras(draft),
	}
	if draft.LoanAmount.IsPositive() {
		amount := draft.LoanAmount
		payload.Amount = &amount
	}

	for _, requirement := range m.requirements {
		if upload, ok := state.files[requirement.Type]; ok {
			payload.Files = append(payload.Files, upload)
		}
	}
	return payload
}

// draftExtras flattens the draft into the free-form map that becomes the
// request's notes blob.
func draftExtras(draft *domain.IntakeDraft) map[string]interface{} {
	data, err := json.Marshal(draft)
	if err != nil {
		return nil
	}
	var extras map[string]interface{}
	if err := json.Unmarshal(data, &extras); err != nil {
		return nil
	}
	delete(extras, "documents")
	delete(extras, "current_step")
	return extras
}

// state fetches the cached session, treating one idle past the draft TTL as
// gone: its persisted draft has expired with the session, so keeping the
// in-memory half (the file bytes in particular) would only leak.
func (m *Machine) state(sessionID string) (*sessionState, error) {
	state, ok := m.sessions[sessionID]
	if !ok {
		return nil, customError.WrapDraftNotFound(sessionID)
	}
	if !state.submitting && m.now().Sub(state.lastAccess) > m.idleTTL {
		delete(m.sessions, sessionID)
		return nil, customError.WrapDraftNotFound(sessionID)
	}
	state.lastAccess = m.now()
	return state, nil
}

// evictIdleLocked drops sessions idle past the draft TTL. A submit in flight
// pins its session until the adapter returns. Called with m.mu held.
func (m *Machine) evictIdleLocked() {
	cutoff := m.now().Add(-m.idleTTL)
	for sessionID, state := range m.sessions {
		if state.submitting || state.lastAccess.After(cutoff) {
			continue
		}
		delete(m.sessions, sessionID)
		m.log.Debug("evicted idle wizard session", zap.String("session_id", sessionID))
	}
}

func (m *Machine) findRequirement(documentType string) *domain.DocumentRequirement {
	for i := range m.requirements {
		if m.requirements[i].Type == documentType {
			return &m.requirements[i]
		}
	}
	return nil
}

func (s *sessionState) fileSet() map[string]bool {
	attached := make(map[string]bool, len(s.files))
	for slot := range s.files {
		attached[slot] = true
	}
	return attached
}

func cloneDraft(draft *domain.IntakeDraft) *domain.IntakeDraft {
	clone := *draft
	clone.Documents = make(map[string]*domain.DocumentMeta, len(draft.Documents))
	for slot, meta := range draft.Documents {
		metaCopy := *meta
		clone.Documents[slot] = &metaCopy
	}
	return &clone
}

func cloneErrors(errs domain.FieldErrors) domain.FieldErrors {
	clone := make(domain.FieldErrors, len(errs))
	for field, message := range errs {
		clone[field] = message
	}
	return clone
}

func isDraftNotFound(err error) bool {
	return errors.Is(err, customError.ErrDraftNotFound)
}
