package cmu

import "errors"

// Reasons carried by hal.ClockConfigError
var (
	ErrDividerRange    = errors.New("multiplier or divider out of range")
	ErrInvalidSource   = errors.New("source not allowed for this clock")
	ErrSourceDisabled  = errors.New("source clock is disabled")
	ErrFrequencyRange  = errors.New("frequency out of range")
	ErrClockInUse      = errors.New("clock feeds outstanding leases")
	ErrNotConfigurable = errors.New("clock cannot be changed this way")
	ErrDomainDisabled  = errors.New("clock domain is disabled")
	ErrNoGate          = errors.New("peripheral has no clock gate")
	ErrLeaseMismatch   = errors.New("clock lease is for another peripheral")
	ErrLeaseReleased   = errors.New("clock lease already released")
	ErrLeaseBound      = errors.New("clock lease is owned by a driver")
)
