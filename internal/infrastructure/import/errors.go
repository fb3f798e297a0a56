package lineimport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ggc/backend/internal/domain/shared"
)

// Load error sentinels. errors.Is matches a *LoadError against these by code.
var (
	ErrUnknownRecordType   = shared.NewDomainError(shared.CodeUnknownRecordType, "unknown record type")
	ErrMalformedRecord     = shared.NewDomainError(shared.CodeMalformedRecord, "malformed record")
	ErrInvalidNumericField = shared.NewDomainError(shared.CodeInvalidNumericField, "invalid numeric field")
	ErrInvalidEncoding     = shared.NewDomainError(shared.CodeInvalidEncoding, "invalid file encoding")
	ErrLoadCancelled       = shared.NewDomainError(shared.CodeLoadCancelled, "load cancelled")
	ErrDuplicateID         = shared.ErrDuplicateID
	ErrUnknownPartner      = shared.ErrUnknownPartner
	ErrUnknownComponent    = shared.ErrUnknownComponent
	ErrRecipeCycle         = shared.ErrRecipeCycle
	ErrNotFound            = shared.ErrNotFound
)

// LoadError describes why a line could not be loaded
type LoadError struct {
	Line    int    `json:"line"`
	Raw     string `json:"raw,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *LoadError) Error() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	sb.WriteString(e.Message)
	if e.Raw != "" {
		fmt.Fprintf(&sb, " (%q)", e.Raw)
	}
	return sb.String()
}

// Unwrap returns the underlying cause
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches sentinel domain errors and other load errors by code
func (e *LoadError) Is(target error) bool {
	switch t := target.(type) {
	case *shared.DomainError:
		return t.Code == e.Code
	case *LoadError:
		return t.Code == e.Code
	}
	return false
}

func newLoadError(code, message string) *LoadError {
	return &LoadError{Code: code, Message: message}
}

func fieldError(code, field, value, message string) *LoadError {
	return &LoadError{Code: code, Field: field, Value: value, Message: message}
}

// at stamps the line position on the error
func (e *LoadError) at(line int, raw string) *LoadError {
	e.Line = line
	e.Raw = raw
	return e
}

// fromDomainError converts a registry error into a load error.
// Missing partners surface as UNKNOWN_PARTNER and shape problems as MALFORMED_RECORD.
func fromDomainError(err error, notFoundCode string) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	code := shared.CodeOf(err)
	switch code {
	case shared.CodeNotFound:
		code = notFoundCode
	case shared.CodeDuplicateComponent, shared.CodeInvalidInput, "":
		code = shared.CodeMalformedRecord
	}
	return &LoadError{Code: code, Message: err.Error(), Err: err}
}

// ErrorCollection manages a bounded collection of load errors
type ErrorCollection struct {
	errors     []LoadError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]LoadError, 0, min(maxErrors, 16)),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err *LoadError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, *err)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []LoadError {
	return ec.errors
}

// Count returns the number of collected errors (up to maxErrors)
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// ErrorSummary returns a count of collected errors by code
func (ec *ErrorCollection) ErrorSummary() map[string]int {
	summary := make(map[string]int)
	for _, err := range ec.errors {
		summary[err.Code]++
	}
	return summary
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")

	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}

	return sb.String()
}

// ValidationResult is the outcome of a dry-run validation
type ValidationResult struct {
	TotalLines   int            `json:"total_lines"`
	Records      int            `json:"records"`
	ValidRecords int            `json:"valid_records"`
	ErrorRecords int            `json:"error_records"`
	Errors       []LoadError    `json:"errors,omitempty"`
	Summary      map[string]int `json:"summary,omitempty"`
	IsTruncated  bool           `json:"is_truncated,omitempty"`
	TotalErrors  int            `json:"total_errors,omitempty"`
}

// SetErrors copies the collected errors into the result
func (vr *ValidationResult) SetErrors(ec *ErrorCollection) {
	vr.Errors = ec.Errors()
	vr.Summary = ec.ErrorSummary()
	vr.IsTruncated = ec.IsTruncated()
	vr.TotalErrors = ec.TotalCount()
}

// IsValid returns true if no record failed
func (vr *ValidationResult) IsValid() bool {
	return vr.ErrorRecords == 0
}
