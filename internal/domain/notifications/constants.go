package notifications

const (
	TypeStatementApproved = "statement_approved"
	TypeStatementPaid     = "statement_paid"
	TypeStatementVoided   = "statement_void"
)
