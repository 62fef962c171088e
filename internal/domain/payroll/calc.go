package payroll

import (
	"math"
	"time"

	"truckbooks/internal/domain/fleet"
)

// CalculateLoadPay returns what the driver earns for a single load under
// their payment type. Missing inputs and unknown payment types pay 0.
func CalculateLoadPay(load *fleet.Load, driver *fleet.Driver) float64 {
	if load == nil || driver == nil {
		return 0
	}
	switch driver.PaymentType {
	case fleet.PaymentTypePerMile:
		return load.TotalMiles() * driver.PayRate
	case fleet.PaymentTypePercentage:
		return load.Rate * (driver.PayRate / 100)
	case fleet.PaymentTypeFlatRate:
		return driver.PayRate
	default:
		return 0
	}
}

// CalculateFuelAdvance returns the share of advanced fuel to recover, with
// advanceRate given as a percentage.
func CalculateFuelAdvance(entries []fleet.FuelEntry, advanceRate float64) float64 {
	if len(entries) == 0 || advanceRate == 0 {
		return 0
	}
	var total float64
	for _, entry := range entries {
		if !entry.CountsAsAdvance() {
			continue
		}
		total += entry.Amount()
	}
	return total * (advanceRate / 100)
}

// CalculateProratedDeduction scales a weekly amount to the number of days in
// the period, counting both endpoints. The period is not checked for order.
func CalculateProratedDeduction(weeklyAmount float64, periodStart, periodEnd time.Time) float64 {
	if weeklyAmount == 0 {
		return 0
	}
	return weeklyAmount * (periodDays(periodStart, periodEnd) / 7)
}

func periodDays(periodStart, periodEnd time.Time) float64 {
	return math.Ceil(periodEnd.Sub(periodStart).Hours()/24) + 1
}

func summarizeFuel(entries []fleet.FuelEntry) FuelSummary {
	summary := FuelSummary{Transactions: len(entries)}
	for _, entry := range entries {
		summary.Gallons += entry.Gallons
		summary.Amount += entry.Amount()
	}
	return summary
}

func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
