package errors

import (
	"errors"
	"fmt"
)

// Common error types for the AP automation tool
var (
	// Secrets store errors
	ErrMissingSecretsFile = errors.New("secrets file not found")
	ErrMalformedSecrets   = errors.New("secrets file is missing required fields")

	// Token lifecycle errors
	ErrTokenExchangeFailed = errors.New("authorization code exchange failed")
	ErrRefreshFailed       = errors.New("token refresh failed, re-authorization required")
	ErrNoTenant            = errors.New("no tenant connection found for this authorization")

	// AP run errors
	ErrInvalidWorkbook = errors.New("workbook is missing required headers")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrEmptyRun        = errors.New("workbook contains no processable rows")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
