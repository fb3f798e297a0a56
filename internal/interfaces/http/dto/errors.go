package dto

import (
	"net/http"

	"github.com/ggc/backend/internal/domain/shared"
)

// Transport-level error codes; domain codes are passed through unchanged
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = shared.CodeNotFound
	// ErrCodeSourceUnavailable is returned when the inventory source cannot be read
	ErrCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeSourceUnavailable: http.StatusBadGateway,

	shared.CodeNotFound:     http.StatusNotFound,
	shared.CodeInvalidInput: http.StatusBadRequest,

	// load failures -> 422 Unprocessable Entity
	shared.CodeUnknownRecordType:   http.StatusUnprocessableEntity,
	shared.CodeMalformedRecord:     http.StatusUnprocessableEntity,
	shared.CodeInvalidNumericField: http.StatusUnprocessableEntity,
	shared.CodeInvalidEncoding:     http.StatusUnprocessableEntity,
	shared.CodeDuplicateID:         http.StatusUnprocessableEntity,
	shared.CodeUnknownPartner:      http.StatusUnprocessableEntity,
	shared.CodeUnknownComponent:    http.StatusUnprocessableEntity,
	shared.CodeRecipeCycle:         http.StatusUnprocessableEntity,
	shared.CodeDuplicateComponent:  http.StatusUnprocessableEntity,

	// the client went away or the server is shutting down
	shared.CodeLoadCancelled: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LoadErrorDetail locates a load failure in the source
type LoadErrorDetail struct {
	Line  int    `json:"line"`
	Raw   string `json:"raw,omitempty"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}
