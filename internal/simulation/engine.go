package simulation

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/swissconsulthub/intake-engine/internal/config"
	"github.com/swissconsulthub/intake-engine/internal/domain"
)

var (
	one    = decimal.NewFromInt(1)
	twelve = decimal.NewFromInt(12)
)

// Engine computes loan economics from the four simulator inputs. Compute is
// pure; persistence lives in Store.
type Engine struct {
	config *config.Config
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{config: cfg}
}

type Input struct {
	Amount             decimal.Decimal
	DurationMonths     int
	GuaranteeRequested bool
	OwnsProperty       bool
}

// Compute returns a snapshot for the given inputs. Out-of-band amount and
// duration are clamped to the simulator bounds and duration snaps down to
// the slider's step size, so the function is total: the UI already enforces
// both, non-UI callers get them here.
func (e *Engine) Compute(in Input) *domain.LoanSimulationSnapshot {
	amount := clampAmount(in.Amount)
	months := clampDuration(in.DurationMonths)

	band := e.config.GetRateBand(in.OwnsProperty)
	minRate, maxRate := band.Min, band.Max

	fee := decimal.Zero
	if in.GuaranteeRequested {
		fee = amount.Mul(e.config.GetGuaranteeFactor(in.OwnsProperty)).Round(2)
	}

	minPayment := amortizedPayment(amount, minRate, months)
	maxPayment := amortizedPayment(amount, maxRate, months)

	n := decimal.NewFromInt(int64(months))

	return &domain.LoanSimulationSnapshot{
		Amount:             amount,
		DurationMonths:     months,
		GuaranteeRequested: in.GuaranteeRequested,
		OwnsProperty:       in.OwnsProperty,
		MinRate:            minRate,
		MaxRate:            maxRate,
		MinMonthlyPayment:  minPayment.Add(fee),
		MaxMonthlyPayment:  maxPayment.Add(fee),
		GuaranteeFee:       fee,
		TotalMinRepayment:  minPayment.Add(fee).Mul(n),
		TotalMaxRepayment:  maxPayment.Add(fee).Mul(n),
		SimulatedAt:        time.Now(),
	}
}

// amortizedPayment applies the standard annuity formula
// P * i * (1+i)^n / ((1+i)^n - 1) with the monthly rate i = annual/12.
// A zero rate degenerates to straight-line division.
func amortizedPayment(principal, annualRate decimal.Decimal, months int) decimal.Decimal {
	n := decimal.NewFromInt(int64(months))
	if annualRate.IsZero() {
		return principal.Div(n).Round(2)
	}

	monthlyRate := annualRate.Div(twelve)
	growth := one.Add(monthlyRate).Pow(n)

	payment := principal.Mul(monthlyRate).Mul(growth).Div(growth.Sub(one))
	return payment.Round(2)
}

func clampAmount(amount decimal.Decimal) decimal.Decimal {
	min := decimal.NewFromInt(domain.MinLoanAmount)
	max := decimal.NewFromInt(domain.MaxLoanAmount)
	if amount.LessThan(min) {
		return min
	}
	if amount.GreaterThan(max) {
		return max
	}
	return amount
}

func clampDuration(months int) int {
	if months < domain.MinDurationMonths {
		return domain.MinDurationMonths
	}
	if months > domain.MaxDurationMonths {
		return domain.MaxDurationMonths
	}
	// The duration slider moves in half-year increments; snap down anything
	// in between.
	return months - months%domain.DurationStepMonths
}
