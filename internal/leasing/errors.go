package leasing

import "errors"

var (
	ErrLeaseNotFound        = errors.New("leasing: lease not found")
	ErrTerminationNotFound  = errors.New("leasing: termination not found")
	ErrRenewalNotFound      = errors.New("leasing: renewal not found")
	ErrRenewalAlreadyActive = errors.New("leasing: renewal already activated")
	ErrInvalidDateRange     = errors.New("leasing: end date must not precede start date")
)
