package payroll

import "errors"

var (
	ErrStatementNotFound       = errors.New("pay statement not found")
	ErrInvalidStatusTransition = errors.New("pay statement status transition not allowed")
	ErrDocumentNotReady        = errors.New("pay statement document not generated")
)
