package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrUnbalanced marks a posting whose debits and credits differ.
	ErrUnbalanced = errors.New("unbalanced")
	// ErrConfiguration marks broken chart or role configuration (cycles, bad mappings).
	ErrConfiguration = errors.New("configuration")
)

// ValidationError reports a malformed input or a violated business rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// BalanceError is returned before any write when a transaction's debits and credits differ.
type BalanceError struct {
	TransactionNo string
	Debits        string
	Credits       string
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("transaction %s is unbalanced: debits %s, credits %s", e.TransactionNo, e.Debits, e.Credits)
}

func (e *BalanceError) Unwrap() error { return ErrUnbalanced }

// ConfigurationError reports a structural problem in stored or injected configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Reason }

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }
