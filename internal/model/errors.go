package model

import "errors"

// Common errors used across the application
var (
	// Identifier errors
	ErrEmptyIdentifier = errors.New("identifier must not be empty")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
	ErrWordOutOfRange      = errors.New("dictionary index out of range")

	// Enumeration errors
	ErrInvalidSuffixLength = errors.New("suffix length must be at least 1")

	// Search errors
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrSearchIncomplete  = errors.New("search could not be completed")
	ErrRunNotFound       = errors.New("run not found")
)
