package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"truckbooks/internal/domain/fleet"
)

func day(value string) time.Time {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		panic(err)
	}
	return parsed
}

const epsilon = 1e-9

func TestCalculateLoadPay(t *testing.T) {
	load := &fleet.Load{LoadedMiles: 500, DeadheadMiles: 50, Rate: 2000}
	cases := []struct {
		name   string
		driver *fleet.Driver
		want   float64
	}{
		{"per mile", &fleet.Driver{PaymentType: fleet.PaymentTypePerMile, PayRate: 0.55}, 302.5},
		{"percentage", &fleet.Driver{PaymentType: fleet.PaymentTypePercentage, PayRate: 25}, 500},
		{"flat rate", &fleet.Driver{PaymentType: fleet.PaymentTypeFlatRate, PayRate: 450}, 450},
		{"unknown type", &fleet.Driver{PaymentType: "hourly", PayRate: 30}, 0},
		{"nil driver", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, CalculateLoadPay(load, tc.driver), epsilon)
		})
	}
	assert.Zero(t, CalculateLoadPay(nil, cases[0].driver), "nil load")
}

func TestCalculateFuelAdvance(t *testing.T) {
	no := false
	yes := true
	entries := []fleet.FuelEntry{
		{Gallons: 100, PricePerGallon: 4},
		{Gallons: 50, PricePerGallon: 4, TotalAmount: 210, IsFuelAdvance: &yes},
		{Gallons: 80, PricePerGallon: 4, IsFuelAdvance: &no},
	}
	assert.InDelta(t, 305, CalculateFuelAdvance(entries, 50), epsilon)
	assert.Zero(t, CalculateFuelAdvance(entries, 0), "zero rate")
	assert.Zero(t, CalculateFuelAdvance(nil, 50), "no entries")
}

func TestCalculateProratedDeduction(t *testing.T) {
	cases := []struct {
		name       string
		weekly     float64
		start, end string
		want       float64
	}{
		{"full week", 700, "2024-01-01", "2024-01-07", 700},
		{"single day", 70, "2024-01-01", "2024-01-01", 10},
		{"two weeks", 140, "2024-01-01", "2024-01-14", 280},
		{"zero weekly amount", 0, "2024-01-01", "2024-01-07", 0},
		{"reversed period", 70, "2024-01-10", "2024-01-01", -80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, CalculateProratedDeduction(tc.weekly, day(tc.start), day(tc.end)), epsilon)
		})
	}
}

func TestCalculateProratedDeductionPartialDayRoundsUp(t *testing.T) {
	start := day("2024-01-01")
	end := start.Add(36 * time.Hour)
	assert.InDelta(t, 30, CalculateProratedDeduction(70, start, end), epsilon, "2 rounded days plus one")
}
