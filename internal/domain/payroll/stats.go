package payroll

import "truckbooks/internal/domain/fleet"

func CalculateDriverStats(driver *fleet.Driver, loads []fleet.Load, fuelEntries []fleet.FuelEntry) DriverStats {
	if driver == nil {
		return DriverStats{}
	}
	stats := DriverStats{DriverID: driver.ID, DriverName: driver.FullName()}
	for _, load := range loads {
		if load.DriverID != driver.ID {
			continue
		}
		stats.LoadCount++
		stats.TotalMiles += load.TotalMiles()
		stats.TotalRevenue += load.Rate
	}
	for _, entry := range fuelEntries {
		if entry.DriverID != driver.ID {
			continue
		}
		stats.FuelTransactions++
		stats.TotalFuelGallons += entry.Gallons
		stats.TotalFuelCost += entry.Amount()
	}
	stats.AvgMPG = ratio(stats.TotalMiles, stats.TotalFuelGallons)
	stats.RevenuePerMile = ratio(stats.TotalRevenue, stats.TotalMiles)
	stats.FuelCostPerMile = ratio(stats.TotalFuelCost, stats.TotalMiles)
	return stats
}

func CalculateTruckStats(truck *fleet.Truck, loads []fleet.Load, fuelEntries []fleet.FuelEntry) TruckStats {
	if truck == nil {
		return TruckStats{}
	}
	stats := TruckStats{TruckID: truck.ID, UnitNumber: truck.UnitNumber, TargetMPG: truck.TargetMPG}
	for _, load := range loads {
		if load.TruckID != truck.ID {
			continue
		}
		stats.LoadCount++
		stats.TotalMiles += load.TotalMiles()
		stats.TotalRevenue += load.Rate
	}
	for _, entry := range fuelEntries {
		if entry.TruckID != truck.ID {
			continue
		}
		stats.FuelTransactions++
		stats.TotalFuelGallons += entry.Gallons
		stats.TotalFuelCost += entry.Amount()
	}
	stats.ActualMPG = ratio(stats.TotalMiles, stats.TotalFuelGallons)
	if truck.TargetMPG != 0 {
		stats.MPGVariance = (stats.ActualMPG - truck.TargetMPG) / truck.TargetMPG * 100
	}
	stats.CostPerMile = ratio(stats.TotalFuelCost, stats.TotalMiles)
	return stats
}
