package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Simulator input bounds. The public slider enforces these client-side,
// the engine clamps again for non-UI callers.
const (
	MinLoanAmount = 1000
	MaxLoanAmount = 100000

	MinDurationMonths  = 6
	MaxDurationMonths  = 84
	DurationStepMonths = 6
)

// RateBand is the {min,max} annual rate pair applied to a simulation.
type RateBand struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// LoanSimulationSnapshot is the output of one simulator run. Exactly one
// live snapshot exists per session; every recomputation overwrites it.
type LoanSimulationSnapshot struct {
	Amount             decimal.Decimal `json:"amount"`
	DurationMonths     int             `json:"duration_months"`
	GuaranteeRequested bool            `json:"guarantee_requested"`
	OwnsProperty       bool            `json:"owns_property"`
	MinRate            decimal.Decimal `json:"min_rate"`
	MaxRate            decimal.Decimal `json:"max_rate"`
	MinMonthlyPayment  decimal.Decimal `json:"min_monthly_payment"`
	MaxMonthlyPayment  decimal.Decimal `json:"max_monthly_payment"`
	GuaranteeFee       decimal.Decimal `json:"guarantee_fee"`
	TotalMinRepayment  decimal.Decimal `json:"total_min_repayment"`
	TotalMaxRepayment  decimal.Decimal `json:"total_max_repayment"`
	SimulatedAt        time.Time       `json:"simulated_at"`
}

// SimulateRequest is the wire input of the simulator endpoint.
type SimulateRequest struct {
	Amount             decimal.Decimal `json:"amount" validate:"required"`
	DurationMonths     int             `json:"duration_months" validate:"required"`
	GuaranteeRequested bool            `json:"guarantee_requested"`
	OwnsProperty       bool            `json:"owns_property"`
}
