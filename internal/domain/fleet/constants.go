package fleet

const (
	PaymentTypePerMile    = "per_mile"
	PaymentTypePercentage = "percentage"
	PaymentTypeFlatRate   = "flat_rate"

	DriverStatusActive   = "active"
	DriverStatusInactive = "inactive"

	UnknownLocation = "Unknown"
)

var PaymentTypes = []string{
	PaymentTypePerMile,
	PaymentTypePercentage,
	PaymentTypeFlatRate,
}
