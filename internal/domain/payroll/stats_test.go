package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"truckbooks/internal/domain/fleet"
)

func TestCalculateDriverStats(t *testing.T) {
	driver := &fleet.Driver{ID: "drv-1", FirstName: "Ana", LastName: "Ruiz"}
	loads := []fleet.Load{
		{DriverID: "drv-1", LoadedMiles: 900, DeadheadMiles: 100, Rate: 2500},
		{DriverID: "drv-2", LoadedMiles: 400, Rate: 900},
	}
	fuel := []fleet.FuelEntry{
		{DriverID: "drv-1", Gallons: 150, PricePerGallon: 4},
		{DriverID: "drv-1", Gallons: 50, TotalAmount: 210},
		{DriverID: "drv-2", Gallons: 80, PricePerGallon: 4},
	}

	stats := CalculateDriverStats(driver, loads, fuel)
	assert.Equal(t, "Ana Ruiz", stats.DriverName)
	assert.Equal(t, 1, stats.LoadCount)
	assert.Equal(t, 2, stats.FuelTransactions)
	assert.InDelta(t, 1000, stats.TotalMiles, 1e-9)
	assert.InDelta(t, 2500, stats.TotalRevenue, 1e-9)
	assert.InDelta(t, 200, stats.TotalFuelGallons, 1e-9)
	assert.InDelta(t, 810, stats.TotalFuelCost, 1e-9)
	assert.InDelta(t, 5, stats.AvgMPG, 1e-9)
	assert.InDelta(t, 2.5, stats.RevenuePerMile, 1e-9)
	assert.InDelta(t, 0.81, stats.FuelCostPerMile, 1e-9)
}

func TestCalculateDriverStatsWithoutFuelOrMiles(t *testing.T) {
	driver := &fleet.Driver{ID: "drv-1"}

	stats := CalculateDriverStats(driver, []fleet.Load{{DriverID: "drv-1", LoadedMiles: 500, Rate: 1000}}, nil)
	assert.Zero(t, stats.AvgMPG)
	assert.InDelta(t, 2, stats.RevenuePerMile, 1e-9)

	stats = CalculateDriverStats(driver, nil, []fleet.FuelEntry{{DriverID: "drv-1", Gallons: 20, PricePerGallon: 4}})
	assert.Zero(t, stats.RevenuePerMile)
	assert.Zero(t, stats.FuelCostPerMile)
	assert.Zero(t, stats.AvgMPG)

	assert.Equal(t, DriverStats{}, CalculateDriverStats(nil, nil, nil))
}

func TestCalculateTruckStats(t *testing.T) {
	truck := &fleet.Truck{ID: "trk-1", UnitNumber: "101", TargetMPG: 6.5}
	loads := []fleet.Load{
		{TruckID: "trk-1", LoadedMiles: 1200, DeadheadMiles: 100, Rate: 3000},
		{TruckID: "trk-2", LoadedMiles: 700, Rate: 1500},
	}
	fuel := []fleet.FuelEntry{
		{TruckID: "trk-1", Gallons: 200, PricePerGallon: 4},
		{TruckID: "trk-2", Gallons: 100, PricePerGallon: 4},
	}

	stats := CalculateTruckStats(truck, loads, fuel)
	assert.Equal(t, "101", stats.UnitNumber)
	assert.Equal(t, 1, stats.LoadCount)
	assert.Equal(t, 1, stats.FuelTransactions)
	assert.InDelta(t, 6.5, stats.ActualMPG, 1e-9)
	assert.InDelta(t, 0, stats.MPGVariance, 1e-9)
	assert.InDelta(t, 800.0/1300.0, stats.CostPerMile, 1e-9)
}

func TestCalculateTruckStatsVariance(t *testing.T) {
	truck := &fleet.Truck{ID: "trk-1", TargetMPG: 6}
	loads := []fleet.Load{{TruckID: "trk-1", LoadedMiles: 1500}}
	fuel := []fleet.FuelEntry{{TruckID: "trk-1", Gallons: 300}}

	stats := CalculateTruckStats(truck, loads, fuel)
	assert.InDelta(t, 5, stats.ActualMPG, 1e-9)
	assert.InDelta(t, -100.0/6.0, stats.MPGVariance, 1e-9)

	truck.TargetMPG = 0
	stats = CalculateTruckStats(truck, loads, fuel)
	assert.Zero(t, stats.MPGVariance)
}
