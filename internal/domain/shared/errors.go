package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code.
// Two errors built from the same sentinel with different messages still match.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by the warehouse model and the record loader
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeDuplicateID         = "DUPLICATE_ID"
	CodeUnknownPartner      = "UNKNOWN_PARTNER"
	CodeUnknownComponent    = "UNKNOWN_COMPONENT"
	CodeRecipeCycle         = "RECIPE_CYCLE"
	CodeDuplicateComponent  = "DUPLICATE_COMPONENT"
	CodeUnknownRecordType   = "UNKNOWN_RECORD_TYPE"
	CodeMalformedRecord     = "MALFORMED_RECORD"
	CodeInvalidNumericField = "INVALID_NUMERIC_FIELD"
	CodeInvalidEncoding     = "INVALID_ENCODING"
	CodeLoadCancelled       = "LOAD_CANCELLED"
)

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput       = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrDuplicateID        = NewDomainError(CodeDuplicateID, "Identifier already registered")
	ErrUnknownPartner     = NewDomainError(CodeUnknownPartner, "Partner not registered")
	ErrUnknownComponent   = NewDomainError(CodeUnknownComponent, "Recipe component not registered")
	ErrRecipeCycle        = NewDomainError(CodeRecipeCycle, "Recipe depends on its own product")
	ErrDuplicateComponent = NewDomainError(CodeDuplicateComponent, "Recipe lists an ingredient twice")
)

// CodeOf returns the code of the first DomainError in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
