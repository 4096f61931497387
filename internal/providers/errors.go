package providers

import "errors"

var (
	ErrProviderNotFound = errors.New("providers: provider not found")
	ErrMissingCriteria  = errors.New("providers: payer and complaint are required")
)
