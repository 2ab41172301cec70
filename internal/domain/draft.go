package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Step identifies one of the six wizard states. Transitions are strictly
// linear, no skipping.
type Step int

const (
	StepPersonal Step = iota + 1
	StepEmployment
	StepHousing
	StepObligations
	StepInsurance
	StepDocuments
)

const (
	FirstStep = StepPersonal
	LastStep  = StepDocuments
)

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Next returns the following step, capped at the last one.
func (s Step) Next() Step {
	if s >= LastStep {
		return LastStep
	}
	return s + 1
}

// Previous returns the preceding step, floored at the first one.
func (s Step) Previous() Step {
	if s <= FirstStep {
		return FirstStep
	}
	return s - 1
}

// FieldErrors maps a field name to a human-readable message. Step validation
// always replaces the whole map, never merges into a stale one.
type FieldErrors map[string]string

func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Employment statuses that additionally require employer name and contract type.
const (
	EmploymentEmployed     = "employed"
	EmploymentSelfEmployed = "self_employed"
	EmploymentRetired      = "retired"
	EmploymentUnemployed   = "unemployed"
)

// DocumentMeta is the persisted part of a document slot. The file bytes
// themselves never enter the draft; they live in the wizard's volatile cache
// for the active session only, so a reloaded draft always comes back without
// usable file handles and the user re-attaches.
type DocumentMeta struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	AttachedAt time.Time `json:"attached_at"`
}

// MaxDocumentSlots caps the number of upload slots a draft can carry.
const MaxDocumentSlots = 10

// DocumentRequirement describes one expected upload slot. The requirements
// list itself comes from configuration, not from the draft.
type DocumentRequirement struct {
	Type     string `json:"type"`
	Label    string `json:"label"`
	Optional bool   `json:"optional"`
}

// IntakeDraft is the cumulative state of the six-step loan request wizard.
// One draft per session, mutated on every field change, auto-persisted on a
// debounce, destroyed on successful submission.
type IntakeDraft struct {
	CurrentStep Step `json:"current_step"`

	// Loan context, pre-filled from the simulation snapshot.
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	LoanDurationMonths int             `json:"loan_duration_months"`
	MonthlyPayment     decimal.Decimal `json:"monthly_payment"`
	GuaranteeRequested bool            `json:"guarantee_requested"`

	// Step 1: personal identity and address.
	Salutation      string `json:"salutation"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DateOfBirth     string `json:"date_of_birth"`
	Nationality     string `json:"nationality"`
	ResidencePermit string `json:"residence_permit"`
	MaritalStatus   string `json:"marital_status"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	PrivacyConsent  bool   `json:"privacy_consent"`
	PostalCode      string `json:"postal_code"`
	City            string `json:"city"`
	Street          string `json:"street"`
	HouseNumber     string `json:"house_number"`
	OwnsHome        string `json:"owns_home"`

	// Step 2: employment and income.
	EmploymentStatus string           `json:"employment_status"`
	EmployerName     string           `json:"employer_name"`
	EmployerCity     string           `json:"employer_city"`
	ContractType     string           `json:"contract_type"`
	EmployedSince    string           `json:"employed_since"`
	NetMonthlyIncome decimal.Decimal  `json:"net_monthly_income"`
	ThirteenthSalary bool             `json:"thirteenth_salary"`
	SideIncome       *decimal.Decimal `json:"side_income,omitempty"`
	SideIncomeSource string           `json:"side_income_source"`

	// Step 3: housing and family.
	HousingSituation   string           `json:"housing_situation"`
	MonthlyHousingCost *decimal.Decimal `json:"monthly_housing_cost,omitempty"`
	HasChildren        string           `json:"has_children"`
	ChildrenCount      int              `json:"children_count"`
	PaysAlimony        string           `json:"pays_alimony"`
	AlimonyAmount      *decimal.Decimal `json:"alimony_amount,omitempty"`

	// Step 4: liabilities and risk flags.
	HeavyOrNightWork       string           `json:"heavy_or_night_work"`
	HasOtherObligations    string           `json:"has_other_obligations"`
	OtherObligationsAmount *decimal.Decimal `json:"other_obligations_amount,omitempty"`
	ExistingLoans          string           `json:"existing_loans"`
	DebtEnforcements       *int             `json:"debt_enforcements,omitempty"`

	// Step 5: credit protection insurance.
	CreditProtectionChoice string `json:"credit_protection_choice"`

	// Step 6: document slots, metadata only (see DocumentMeta).
	Documents map[string]*DocumentMeta `json:"documents,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewIntakeDraft returns an empty draft positioned on the first step.
func NewIntakeDraft() *IntakeDraft {
	return &IntakeDraft{
		CurrentStep: FirstStep,
		Documents:   make(map[string]*DocumentMeta),
	}
}

// ApplySnapshot copies the loan context of a simulation snapshot into the draft.
func (d *IntakeDraft) ApplySnapshot(s *LoanSimulationSnapshot) {
	if s == nil {
		return
	}
	d.LoanAmount = s.Amount
	d.LoanDurationMonths = s.DurationMonths
	d.MonthlyPayment = s.MinMonthlyPayment
	d.GuaranteeRequested = s.GuaranteeRequested
}
