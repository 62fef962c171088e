package reports

import (
	"encoding/json"
	"time"
)

type FleetDashboard struct {
	From               time.Time      `json:"from"`
	To                 time.Time      `json:"to"`
	ActiveDrivers      int            `json:"activeDrivers"`
	Trucks             int            `json:"trucks"`
	Loads              int            `json:"loads"`
	LoadedMiles        float64        `json:"loadedMiles"`
	DeadheadMiles      float64        `json:"deadheadMiles"`
	Revenue            float64        `json:"revenue"`
	FuelAmount         float64        `json:"fuelAmount"`
	StatementsByStatus map[string]int `json:"statementsByStatus"`
	UnpaidNetPay       float64        `json:"unpaidNetPay"`
}

type DriverDashboard struct {
	DriverID            string     `json:"driverId"`
	Statements          int        `json:"statements"`
	AwaitingPayment     int        `json:"awaitingPayment"`
	YearToDateNetPay    float64    `json:"yearToDateNetPay"`
	LastPaidNetPay      float64    `json:"lastPaidNetPay"`
	LastPaidAt          *time.Time `json:"lastPaidAt,omitempty"`
	UnreadNotifications int        `json:"unreadNotifications"`
}

type JobRun struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
