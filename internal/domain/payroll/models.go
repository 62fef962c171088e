package payroll

import (
	"time"

	"truckbooks/internal/domain/fleet"
)

type Deduction struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type LoadPay struct {
	LoadID        string    `json:"loadId"`
	LoadNumber    string    `json:"loadNumber"`
	Date          time.Time `json:"date"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	LoadedMiles   float64   `json:"loadedMiles"`
	DeadheadMiles float64   `json:"deadheadMiles"`
	TotalMiles    float64   `json:"totalMiles"`
	Rate          float64   `json:"rate"`
	DriverPay     float64   `json:"driverPay"`
}

type FuelSummary struct {
	Transactions int     `json:"transactions"`
	Gallons      float64 `json:"gallons"`
	Amount       float64 `json:"amount"`
}

type PayStatement struct {
	ID              string      `json:"id"`
	DriverID        string      `json:"driverId"`
	DriverName      string      `json:"driverName"`
	PeriodStart     time.Time   `json:"periodStart"`
	PeriodEnd       time.Time   `json:"periodEnd"`
	Status          string      `json:"status"`
	PaymentType     string      `json:"paymentType"`
	PayRate         float64     `json:"payRate"`
	Loads           []LoadPay   `json:"loads"`
	LoadCount       int         `json:"loadCount"`
	TotalMiles      float64     `json:"totalMiles"`
	TotalGrossPay   float64     `json:"totalGrossPay"`
	TotalDriverPay  float64     `json:"totalDriverPay"`
	Deductions      []Deduction `json:"deductions"`
	TotalDeductions float64     `json:"totalDeductions"`
	NetPay          float64     `json:"netPay"`
	FuelSummary     FuelSummary `json:"fuelSummary"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	PaidAt          *time.Time  `json:"paidAt"`
	Notes           string      `json:"notes"`
	DocumentPath    string      `json:"-"`
}

// StatementInput is everything the generator needs for one driver and
// period. Loads and fuel entries are expected to be pre-filtered by the
// caller.
type StatementInput struct {
	Driver               *fleet.Driver
	Loads                []fleet.Load
	FuelEntries          []fleet.FuelEntry
	PeriodStart          time.Time
	PeriodEnd            time.Time
	AdditionalDeductions []Deduction
}

type DriverStats struct {
	DriverID         string  `json:"driverId"`
	DriverName       string  `json:"driverName"`
	LoadCount        int     `json:"loadCount"`
	FuelTransactions int     `json:"fuelTransactions"`
	TotalMiles       float64 `json:"totalMiles"`
	TotalRevenue     float64 `json:"totalRevenue"`
	TotalFuelGallons float64 `json:"totalFuelGallons"`
	TotalFuelCost    float64 `json:"totalFuelCost"`
	AvgMPG           float64 `json:"avgMpg"`
	RevenuePerMile   float64 `json:"revenuePerMile"`
	FuelCostPerMile  float64 `json:"fuelCostPerMile"`
}

type TruckStats struct {
	TruckID          string  `json:"truckId"`
	UnitNumber       string  `json:"unitNumber"`
	LoadCount        int     `json:"loadCount"`
	FuelTransactions int     `json:"fuelTransactions"`
	TotalMiles       float64 `json:"totalMiles"`
	TotalRevenue     float64 `json:"totalRevenue"`
	TotalFuelGallons float64 `json:"totalFuelGallons"`
	TotalFuelCost    float64 `json:"totalFuelCost"`
	TargetMPG        float64 `json:"targetMpg"`
	ActualMPG        float64 `json:"actualMpg"`
	MPGVariance      float64 `json:"mpgVariance"`
	CostPerMile      float64 `json:"costPerMile"`
}

type StatementFilter struct {
	DriverID string
	Status   string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
