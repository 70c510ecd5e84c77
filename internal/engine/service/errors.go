package service

import "errors"

var (
	// ErrCredentialsMissing is returned when a tenant has no exchange key or secret.
	ErrCredentialsMissing = errors.New("exchange credentials are not configured")
	// ErrOwnerNotFound is returned when the tenant does not exist.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrRunInProgress is returned when another daily run holds the lock.
	ErrRunInProgress = errors.New("daily run already in progress")
)

// ImportBuyFillsOnly keeps only buy-side fills when importing exchange trades.
// Sell fills are counted as ignored.
const ImportBuyFillsOnly = true
