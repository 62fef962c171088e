package fleet

import (
	"strings"
	"time"
)

type Driver struct {
	ID                 string    `json:"id"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Status             string    `json:"status"`
	PaymentType        string    `json:"paymentType"`
	PayRate            float64   `json:"payRate"`
	FuelAdvanceRate    float64   `json:"fuelAdvanceRate"`
	InsuranceDeduction float64   `json:"insuranceDeduction"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (d Driver) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type Truck struct {
	ID         string    `json:"id"`
	UnitNumber string    `json:"unitNumber"`
	Make       string    `json:"make,omitempty"`
	Model      string    `json:"model,omitempty"`
	Year       int       `json:"year,omitempty"`
	VIN        string    `json:"vin,omitempty"`
	TargetMPG  float64   `json:"targetMpg"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Stop struct {
	Type     string `json:"type,omitempty"`
	Location string `json:"location,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
}

// Label is the display name of the stop, or "" when nothing identifies it.
func (s Stop) Label() string {
	if location := strings.TrimSpace(s.Location); location != "" {
		return location
	}
	city := strings.TrimSpace(s.City)
	state := strings.TrimSpace(s.State)
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

type Load struct {
	ID            string    `json:"id"`
	LoadNumber    string    `json:"loadNumber"`
	Date          time.Time `json:"date"`
	Stops         []Stop    `json:"stops,omitempty"`
	Origin        string    `json:"origin,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	LoadedMiles   float64   `json:"loadedMiles"`
	DeadheadMiles float64   `json:"deadheadMiles"`
	Rate          float64   `json:"rate"`
	DriverID      string    `json:"driverId,omitempty"`
	TruckID       string    `json:"truckId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (l Load) TotalMiles() float64 {
	return l.LoadedMiles + l.DeadheadMiles
}

// OriginLabel prefers the first stop, then the origin field.
func (l Load) OriginLabel() string {
	if len(l.Stops) > 0 {
		if label := l.Stops[0].Label(); label != "" {
			return label
		}
	}
	if origin := strings.TrimSpace(l.Origin); origin != "" {
		return origin
	}
	return UnknownLocation
}

// DestinationLabel prefers the last stop, then the destination field.
func (l Load) DestinationLabel() string {
	if len(l.Stops) > 0 {
		if label := l.Stops[len(l.Stops)-1].Label(); label != "" {
			return label
		}
	}
	if destination := strings.TrimSpace(l.Destination); destination != "" {
		return destination
	}
	return UnknownLocation
}

type FuelEntry struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	Gallons        float64   `json:"gallons"`
	PricePerGallon float64   `json:"pricePerGallon"`
	TotalAmount    float64   `json:"totalAmount,omitempty"`
	IsFuelAdvance  *bool     `json:"isFuelAdvance,omitempty"`
	Location       string    `json:"location,omitempty"`
	State          string    `json:"state,omitempty"`
	DriverID       string    `json:"driverId,omitempty"`
	TruckID        string    `json:"truckId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Amount is the money spent on the entry: the recorded total when there is
// one, otherwise gallons times price.
func (f FuelEntry) Amount() float64 {
	if f.TotalAmount != 0 {
		return f.TotalAmount
	}
	return f.Gallons * f.PricePerGallon
}

// CountsAsAdvance reports whether the entry was paid up front for the
// driver. Entries without the flag count.
func (f FuelEntry) CountsAsAdvance() bool {
	return f.IsFuelAdvance == nil || *f.IsFuelAdvance
}

type Filter struct {
	DriverID string
	TruckID  string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
