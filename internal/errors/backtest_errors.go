package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents different classes of failure in a backtest run
type ErrorCategory string

const (
	// Fatal for the whole run
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryData          ErrorCategory = "DATA"
	ErrorCategorySweep         ErrorCategory = "SWEEP"
	ErrorCategoryStorage       ErrorCategory = "STORAGE"

	// Caller contract violations
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	ErrorCategoryAlignment  ErrorCategory = "ALIGNMENT"
	ErrorCategoryStrategy   ErrorCategory = "STRATEGY"
)

// BacktestError represents a categorized error with context
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error must abort the whole run
func (e *BacktestError) IsFatal() bool {
	switch e.Category {
	case ErrorCategoryConfiguration, ErrorCategoryData, ErrorCategorySweep, ErrorCategoryStorage:
		return true
	default:
		return false
	}
}

// NewBacktestError creates a new categorized error
func NewBacktestError(category ErrorCategory, component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with backtest error context
func WrapError(err error, category ErrorCategory, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	return &BacktestError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// CategoryOf returns the category of the first BacktestError in the chain, or ""
func CategoryOf(err error) ErrorCategory {
	var be *BacktestError
	if stderrors.As(err, &be) {
		return be.Category
	}
	return ""
}

// Common error constructors
func NewValidationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryConfiguration, component, operation, message)
}

func NewAlignmentError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryAlignment, component, operation)
}

func NewStrategyError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryStrategy, component, operation)
}

func NewSweepError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategorySweep, component, operation)
}

func NewDataError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

func NewStorageError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}
