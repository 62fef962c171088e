package payroll

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"truckbooks/internal/platform/clock"
)

type IDFunc func() string

// NewStatementID returns a time-ordered UUIDv7, falling back to a random
// UUID if the v7 generator fails.
func NewStatementID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Generator builds pay statements. It holds no mutable state and is safe for
// concurrent use.
type Generator struct {
	clock clock.Clock
	newID IDFunc
}

func NewGenerator(clk clock.Clock, newID IDFunc) *Generator {
	if clk == nil {
		clk = clock.System{}
	}
	if newID == nil {
		newID = NewStatementID
	}
	return &Generator{clock: clk, newID: newID}
}

func (g *Generator) Generate(in StatementInput) PayStatement {
	now := g.clock.Now()
	statement := PayStatement{
		ID:          g.newID(),
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Status:      StatusDraft,
		Loads:       make([]LoadPay, 0, len(in.Loads)),
		Deductions:  []Deduction{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Driver != nil {
		statement.DriverID = in.Driver.ID
		statement.DriverName = in.Driver.FullName()
		statement.PaymentType = in.Driver.PaymentType
		statement.PayRate = in.Driver.PayRate
	}

	for i := range in.Loads {
		load := &in.Loads[i]
		line := LoadPay{
			LoadID:        load.ID,
			LoadNumber:    load.LoadNumber,
			Date:          load.Date,
			Origin:        load.OriginLabel(),
			Destination:   load.DestinationLabel(),
			LoadedMiles:   load.LoadedMiles,
			DeadheadMiles: load.DeadheadMiles,
			TotalMiles:    load.TotalMiles(),
			Rate:          load.Rate,
			DriverPay:     CalculateLoadPay(load, in.Driver),
		}
		statement.Loads = append(statement.Loads, line)
		statement.TotalMiles += line.TotalMiles
		statement.TotalGrossPay += line.Rate
		statement.TotalDriverPay += line.DriverPay
	}
	statement.LoadCount = len(statement.Loads)

	statement.Deductions = buildDeductions(in)
	for _, deduction := range statement.Deductions {
		statement.TotalDeductions += deduction.Amount
	}
	statement.NetPay = statement.TotalDriverPay - statement.TotalDeductions
	statement.FuelSummary = summarizeFuel(in.FuelEntries)
	return statement
}

// buildDeductions orders deductions as fuel advance, insurance, then the
// caller's extras in input order.
func buildDeductions(in StatementInput) []Deduction {
	deductions := []Deduction{}
	if driver := in.Driver; driver != nil {
		if driver.FuelAdvanceRate > 0 {
			amount := CalculateFuelAdvance(in.FuelEntries, driver.FuelAdvanceRate)
			if amount > 0 {
				deductions = append(deductions, Deduction{
					Type:        DeductionFuelAdvance,
					Description: fmt.Sprintf("Fuel advance (%s%%)", formatRate(driver.FuelAdvanceRate)),
					Amount:      amount,
				})
			}
		}
		// Appended even when the prorated amount comes out as 0.
		if driver.InsuranceDeduction > 0 {
			deductions = append(deductions, Deduction{
				Type:        DeductionInsurance,
				Description: fmt.Sprintf("Insurance (%s days)", formatRate(periodDays(in.PeriodStart, in.PeriodEnd))),
				Amount:      CalculateProratedDeduction(driver.InsuranceDeduction, in.PeriodStart, in.PeriodEnd),
			})
		}
	}
	for _, extra := range in.AdditionalDeductions {
		if extra.Type == "" {
			extra.Type = DeductionOther
		}
		deductions = append(deductions, extra)
	}
	return deductions
}

func formatRate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
