package payroll

const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusPaid     = "paid"
	StatusVoid     = "void"

	DeductionFuelAdvance = "fuel_advance"
	DeductionCashAdvance = "cash_advance"
	DeductionInsurance   = "insurance"
	DeductionEscrow      = "escrow"
	DeductionELD         = "eld"
	DeductionParking     = "parking"
	DeductionOther       = "other"
)

var DeductionTypes = []string{
	DeductionFuelAdvance,
	DeductionCashAdvance,
	DeductionInsurance,
	DeductionEscrow,
	DeductionELD,
	DeductionParking,
	DeductionOther,
}

var Statuses = []string{StatusDraft, StatusApproved, StatusPaid, StatusVoid}

// transitions lists the statuses reachable from each status. Paid and void
// statements are closed.
var transitions = map[string][]string{
	StatusDraft:    {StatusApproved, StatusVoid},
	StatusApproved: {StatusDraft, StatusPaid, StatusVoid},
}
