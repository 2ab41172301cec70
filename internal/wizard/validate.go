package wizard

import (
	"github.com/swissconsulthub/intake-engine/internal/domain"
)

// Localized messages surfaced next to the offending field.
const (
	msgRequired       = "Campo obbligatorio"
	msgPrivacyConsent = "Devi accettare l'informativa sulla privacy"
	msgDocumentNeeded = "Documento obbligatorio"
)

// validateStep recomputes the error map for one step from scratch. The
// returned map always replaces the previous one wholesale; it is never
// merged into stale state. attachedFiles carries which document slots hold
// an actual file in the volatile cache (metadata alone is not enough, a
// reloaded draft keeps metadata but loses the bytes).
func validateStep(draft *domain.IntakeDraft, step domain.Step, requirements []domain.DocumentRequirement, attachedFiles map[string]bool) domain.FieldErrors {
	errs := make(domain.FieldErrors)

	switch step {
	case domain.StepPersonal:
		requireString(errs, "salutation", draft.Salutation)
		requireString(errs, "first_name", draft.FirstName)
		requireString(errs, "last_name", draft.LastName)
		requireString(errs, "date_of_birth", draft.DateOfBirth)
		requireString(errs, "marital_status", draft.MaritalStatus)
		requireString(errs, "phone", draft.Phone)
		requireString(errs, "email", draft.Email)
		if !draft.PrivacyConsent {
			errs["privacy_consent"] = msgPrivacyConsent
		}
		requireString(errs, "postal_code", draft.PostalCode)
		requireString(errs, "city", draft.City)
		requireString(errs, "street", draft.Street)
		requireString(errs, "house_number", draft.HouseNumber)
		requireString(errs, "owns_home", draft.OwnsHome)

	case domain.StepEmployment:
		requireString(errs, "employment_status", draft.EmploymentStatus)
		if draft.EmploymentStatus == domain.EmploymentEmployed || draft.EmploymentStatus == domain.EmploymentSelfEmployed {
			requireString(errs, "employer_name", draft.EmployerName)
			requireString(errs, "contract_type", draft.ContractType)
		}
		if !draft.NetMonthlyIncome.IsPositive() {
			errs["net_monthly_income"] = msgRequired
		}

	case domain.StepHousing:
		requireString(errs, "housing_situation", draft.HousingSituation)
		if draft.MonthlyHousingCost == nil {
			errs["monthly_housing_cost"] = msgRequired
		}
		requireString(errs, "has_children", draft.HasChildren)
		requireString(errs, "pays_alimony", draft.PaysAlimony)

	case domain.StepObligations:
		requireString(errs, "heavy_or_night_work", draft.HeavyOrNightWork)
		requireString(errs, "has_other_obligations", draft.HasOtherObligations)
		if draft.DebtEnforcements == nil {
			errs["debt_enforcements"] = msgRequired
		}

	case domain.StepInsurance:
		requireString(errs, "credit_protection_choice", draft.CreditProtectionChoice)

	case domain.StepDocuments:
		for _, req := range requirements {
			if req.Optional {
				continue
			}
			if !attachedFiles[req.Type] {
				errs[req.Type] = msgDocumentNeeded
			}
		}
	}

	return errs
}

func requireString(errs domain.FieldErrors, field, value string) {
	if value == "" {
		errs[field] = msgRequired
	}
}
