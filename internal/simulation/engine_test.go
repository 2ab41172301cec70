package simulation

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swissconsulthub/intake-engine/internal/config"
	"github.com/swissconsulthub/intake-engine/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Simulation: config.SimulationConfig{
			RateMinWithProperty:            "0.069",
			RateMaxWithProperty:            "0.109",
			RateMinWithoutProperty:         "0.069",
			RateMaxWithoutProperty:         "0.109",
			GuaranteeFactorWithProperty:    "0.001845",
			GuaranteeFactorWithoutProperty: "0.001845",
		},
	}
}

// referencePayment computes the annuity with float math, independent of the
// decimal implementation under test.
func referencePayment(principal, annualRate float64, months int) float64 {
	if annualRate == 0 {
		return principal / float64(months)
	}
	i := annualRate / 12
	return principal * i / (1 - math.Pow(1+i, -float64(months)))
}

func TestCompute_ExampleScenario(t *testing.T) {
	// amount=10000, duration=36, ownsProperty=false, guarantee=true
	engine := NewEngine(testConfig())

	snapshot := engine.Compute(Input{
		Amount:             decimal.NewFromInt(10000),
		DurationMonths:     36,
		GuaranteeRequested: true,
		OwnsProperty:       false,
	})

	assert.True(t, snapshot.MinRate.Equal(decimal.NewFromFloat(0.069)), "min rate")
	assert.True(t, snapshot.MaxRate.Equal(decimal.NewFromFloat(0.109)), "max rate")
	assert.True(t, snapshot.GuaranteeFee.Equal(decimal.NewFromFloat(18.45)), "guarantee fee, got %s", snapshot.GuaranteeFee)

	expectedMin := referencePayment(10000, 0.069, 36) + 18.45
	actualMin, _ := snapshot.MinMonthlyPayment.Float64()
	assert.InDelta(t, expectedMin, actualMin, 0.01)

	expectedTotal := snapshot.MinMonthlyPayment.Mul(decimal.NewFromInt(36))
	assert.True(t, snapshot.TotalMinRepayment.Equal(expectedTotal),
		"total min repayment %s != %s", snapshot.TotalMinRepayment, expectedTotal)
}

func TestCompute_Properties(t *testing.T) {
	engine := NewEngine(testConfig())

	tests := []struct {
		name  string
		input Input
	}{
		{
			name:  "small loan, no extras",
			input: Input{Amount: decimal.NewFromInt(1000), DurationMonths: 6},
		},
		{
			name:  "max loan with guarantee",
			input: Input{Amount: decimal.NewFromInt(100000), DurationMonths: 84, GuaranteeRequested: true},
		},
		{
			name:  "property owner",
			input: Input{Amount: decimal.NewFromInt(25000), DurationMonths: 48, OwnsProperty: true},
		},
		{
			name:  "property owner with guarantee",
			input: Input{Amount: decimal.NewFromInt(50000), DurationMonths: 60, GuaranteeRequested: true, OwnsProperty: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := engine.Compute(tt.input)

			// Monotonic rates and payments.
			assert.True(t, snapshot.MaxRate.GreaterThanOrEqual(snapshot.MinRate))
			assert.True(t, snapshot.MaxMonthlyPayment.GreaterThanOrEqual(snapshot.MinMonthlyPayment))

			// Fee linearity.
			if tt.input.GuaranteeRequested {
				expectedFee := tt.input.Amount.Mul(decimal.NewFromFloat(0.001845)).Round(2)
				assert.True(t, snapshot.GuaranteeFee.Equal(expectedFee))
			} else {
				assert.True(t, snapshot.GuaranteeFee.IsZero())
			}
			assert.False(t, snapshot.GuaranteeFee.IsNegative())

			// Total consistency: total == payment * months, fee already folded in.
			n := decimal.NewFromInt(int64(snapshot.DurationMonths))
			assert.True(t, snapshot.TotalMaxRepayment.Equal(snapshot.MaxMonthlyPayment.Mul(n)))
			assert.True(t, snapshot.TotalMinRepayment.Equal(snapshot.MinMonthlyPayment.Mul(n)))

			// Payments line up with an independent float computation.
			amount, _ := tt.input.Amount.Float64()
			fee, _ := snapshot.GuaranteeFee.Float64()
			actualMax, _ := snapshot.MaxMonthlyPayment.Float64()
			assert.InDelta(t, referencePayment(amount, 0.109, snapshot.DurationMonths)+fee, actualMax, 0.01)
		})
	}
}

func TestCompute_ClampsOutOfBandInputs(t *testing.T) {
	engine := NewEngine(testConfig())

	tests := []struct {
		name           string
		amount         decimal.Decimal
		months         int
		expectedAmount int64
		expectedMonths int
	}{
		{"below minimums", decimal.NewFromInt(50), 0, domain.MinLoanAmount, domain.MinDurationMonths},
		{"negative duration", decimal.NewFromInt(5000), -12, 5000, domain.MinDurationMonths},
		{"above maximums", decimal.NewFromInt(2000000), 240, domain.MaxLoanAmount, domain.MaxDurationMonths},
		{"off-step duration snaps down", decimal.NewFromInt(5000), 40, 5000, 36},
		{"almost a full step up", decimal.NewFromInt(5000), 47, 5000, 42},
		{"on-step duration untouched", decimal.NewFromInt(5000), 48, 5000, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := engine.Compute(Input{Amount: tt.amount, DurationMonths: tt.months})

			assert.True(t, snapshot.Amount.Equal(decimal.NewFromInt(tt.expectedAmount)))
			assert.Equal(t, tt.expectedMonths, snapshot.DurationMonths)
			assert.True(t, snapshot.MinMonthlyPayment.IsPositive())
		})
	}
}

func TestCompute_ZeroRateFallsBackToStraightLine(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.RateMinWithoutProperty = "0"
	engine := NewEngine(cfg)

	snapshot := engine.Compute(Input{Amount: decimal.NewFromInt(12000), DurationMonths: 12})

	require.True(t, snapshot.MinRate.IsZero())
	assert.True(t, snapshot.MinMonthlyPayment.Equal(decimal.NewFromInt(1000)),
		"expected 1000, got %s", snapshot.MinMonthlyPayment)
}
