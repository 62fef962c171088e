package fleet

import "errors"

var (
	ErrDriverNotFound = errors.New("driver not found")
	ErrTruckNotFound  = errors.New("truck not found")
	ErrLoadNotFound   = errors.New("load not found")

	ErrDuplicateUnitNumber = errors.New("truck unit number already in use")
)
