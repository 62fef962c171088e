package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckbooks/internal/domain/fleet"
	"truckbooks/internal/platform/clock"
)

var generatedAt = time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)

func fixedGenerator() *Generator {
	return NewGenerator(clock.NewFake(generatedAt), func() string { return "stmt-1" })
}

func perMileDriver() *fleet.Driver {
	return &fleet.Driver{
		ID:                 "drv-1",
		FirstName:          "Ana",
		LastName:           "Ruiz",
		PaymentType:        fleet.PaymentTypePerMile,
		PayRate:            0.55,
		FuelAdvanceRate:    50,
		InsuranceDeduction: 700,
	}
}

func weekLoads() []fleet.Load {
	return []fleet.Load{
		{
			ID:          "load-1",
			LoadNumber:  "L-100",
			Date:        day("2024-01-02"),
			Stops:       []fleet.Stop{{Type: "pickup", City: "Dallas", State: "TX"}, {Type: "delivery", Location: "Memphis DC"}},
			LoadedMiles: 500, DeadheadMiles: 50, Rate: 2000,
			DriverID: "drv-1",
		},
		{
			ID:          "load-2",
			LoadNumber:  "L-101",
			Date:        day("2024-01-05"),
			Origin:      "Memphis, TN",
			LoadedMiles: 300, Rate: 1200,
			DriverID: "drv-1",
		},
	}
}

func TestGenerateStatementTotals(t *testing.T) {
	fuel := []fleet.FuelEntry{{Gallons: 100, PricePerGallon: 4, DriverID: "drv-1"}}
	st := fixedGenerator().Generate(StatementInput{
		Driver:      perMileDriver(),
		Loads:       weekLoads(),
		FuelEntries: fuel,
		PeriodStart: day("2024-01-01"),
		PeriodEnd:   day("2024-01-07"),
	})

	assert.Equal(t, "stmt-1", st.ID)
	assert.Equal(t, StatusDraft, st.Status)
	assert.Equal(t, "Ana Ruiz", st.DriverName)
	assert.Equal(t, generatedAt, st.CreatedAt)
	assert.Equal(t, generatedAt, st.UpdatedAt)
	assert.Nil(t, st.PaidAt)

	require.Len(t, st.Loads, 2)
	assert.Equal(t, 2, st.LoadCount)
	assert.Equal(t, "Dallas, TX", st.Loads[0].Origin)
	assert.Equal(t, "Memphis DC", st.Loads[0].Destination)
	assert.Equal(t, "Memphis, TN", st.Loads[1].Origin)
	assert.Equal(t, fleet.UnknownLocation, st.Loads[1].Destination)
	assert.InDelta(t, 302.5, st.Loads[0].DriverPay, 1e-9)
	assert.InDelta(t, 165, st.Loads[1].DriverPay, 1e-9)

	assert.InDelta(t, 850, st.TotalMiles, 1e-9)
	assert.InDelta(t, 3200, st.TotalGrossPay, 1e-9)
	assert.InDelta(t, 467.5, st.TotalDriverPay, 1e-9)

	require.Len(t, st.Deductions, 2)
	assert.Equal(t, DeductionFuelAdvance, st.Deductions[0].Type)
	assert.Equal(t, "Fuel advance (50%)", st.Deductions[0].Description)
	assert.InDelta(t, 200, st.Deductions[0].Amount, 1e-9)
	assert.Equal(t, DeductionInsurance, st.Deductions[1].Type)
	assert.Equal(t, "Insurance (7 days)", st.Deductions[1].Description)
	assert.InDelta(t, 700, st.Deductions[1].Amount, 1e-9)

	assert.InDelta(t, 900, st.TotalDeductions, 1e-9)
	assert.InDelta(t, st.TotalDriverPay-st.TotalDeductions, st.NetPay, 1e-9)
	assert.Equal(t, FuelSummary{Transactions: 1, Gallons: 100, Amount: 400}, st.FuelSummary)
}

func TestGenerateStatementAdditionalDeductionsKeepOrder(t *testing.T) {
	driver := perMileDriver()
	driver.FuelAdvanceRate = 0
	driver.InsuranceDeduction = 0

	st := fixedGenerator().Generate(StatementInput{
		Driver:      driver,
		Loads:       weekLoads()[:1],
		PeriodStart: day("2024-01-01"),
		PeriodEnd:   day("2024-01-07"),
		AdditionalDeductions: []Deduction{
			{Type: DeductionCashAdvance, Description: "Cash advance", Amount: 100},
			{Description: "Toll", Amount: fleet.ParseNumber("45.50")},
		},
	})

	require.Len(t, st.Deductions, 2)
	assert.Equal(t, DeductionCashAdvance, st.Deductions[0].Type)
	assert.Equal(t, Deduction{Type: DeductionOther, Description: "Toll", Amount: 45.5}, st.Deductions[1])
	assert.InDelta(t, 145.5, st.TotalDeductions, 1e-9)
	assert.InDelta(t, 302.5-145.5, st.NetPay, 1e-9)
}

func TestGenerateStatementInsuranceAppendedAtZero(t *testing.T) {
	driver := perMileDriver()
	driver.FuelAdvanceRate = 0

	// A reversed period of exactly one day prorates to 0 days.
	st := fixedGenerator().Generate(StatementInput{
		Driver:      driver,
		PeriodStart: day("2024-01-02"),
		PeriodEnd:   day("2024-01-01"),
	})

	require.Len(t, st.Deductions, 1)
	assert.Equal(t, DeductionInsurance, st.Deductions[0].Type)
	assert.Equal(t, 0.0, st.Deductions[0].Amount)
}

func TestGenerateStatementSkipsFuelAdvanceWithoutAdvancedFuel(t *testing.T) {
	no := false
	driver := perMileDriver()
	driver.InsuranceDeduction = 0

	st := fixedGenerator().Generate(StatementInput{
		Driver:      driver,
		FuelEntries: []fleet.FuelEntry{{Gallons: 90, PricePerGallon: 4, IsFuelAdvance: &no}},
		PeriodStart: day("2024-01-01"),
		PeriodEnd:   day("2024-01-07"),
	})

	assert.Empty(t, st.Deductions)
	assert.NotNil(t, st.Deductions)
	assert.Equal(t, 1, st.FuelSummary.Transactions)
	assert.InDelta(t, 360, st.FuelSummary.Amount, 1e-9)
}

func TestGenerateStatementEmptyPeriod(t *testing.T) {
	driver := perMileDriver()
	driver.FuelAdvanceRate = 0
	driver.InsuranceDeduction = 0

	st := fixedGenerator().Generate(StatementInput{
		Driver:      driver,
		PeriodStart: day("2024-01-01"),
		PeriodEnd:   day("2024-01-07"),
	})

	assert.Equal(t, 0, st.LoadCount)
	assert.NotNil(t, st.Loads)
	assert.Zero(t, st.TotalDriverPay)
	assert.Zero(t, st.NetPay)
}

func TestNewGeneratorDefaultsToUUIDs(t *testing.T) {
	gen := NewGenerator(nil, nil)
	first := gen.Generate(StatementInput{Driver: perMileDriver()})
	second := gen.Generate(StatementInput{Driver: perMileDriver()})
	assert.Len(t, first.ID, 36)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusApproved))
	assert.True(t, CanTransition(StatusApproved, StatusDraft))
	assert.True(t, CanTransition(StatusApproved, StatusPaid))
	assert.True(t, CanTransition(StatusApproved, StatusVoid))
	assert.False(t, CanTransition(StatusDraft, StatusPaid))
	assert.False(t, CanTransition(StatusPaid, StatusDraft))
	assert.False(t, CanTransition(StatusVoid, StatusApproved))
	assert.False(t, CanTransition("bogus", StatusDraft))
}
