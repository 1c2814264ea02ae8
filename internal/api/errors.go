package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/recall-api/internal/api/shared"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/phrazzld/recall-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingSubject),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrUnknownItem),
		errors.Is(err, service.ErrUnknownSitting),
		errors.Is(err, service.ErrUnknownPool),
		errors.Is(err, service.ErrUnknownSubmission),
		errors.Is(err, store.ErrPoolNotFound),
		errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, store.ErrSittingNotFound),
		errors.Is(err, store.ErrSubmissionNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateSubmission),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrSittingNotFinished),
		errors.Is(err, service.ErrNotRetryable):
		return http.StatusConflict

	case errors.Is(err, service.ErrNothingDue):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrPoolTitleEmpty),
		errors.Is(err, domain.ErrConceptEmpty),
		errors.Is(err, domain.ErrSubmissionAnswerEmpty),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingSubject):
		return "Invalid token"

	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"

	case errors.Is(err, domain.ErrUnauthorized):
		return "User ID not found or invalid"

	// Not found errors
	case errors.Is(err, service.ErrUnknownItem), errors.Is(err, store.ErrItemNotFound):
		return "Item not found"

	case errors.Is(err, service.ErrUnknownSitting), errors.Is(err, store.ErrSittingNotFound):
		return "Sitting not found"

	case errors.Is(err, service.ErrUnknownPool), errors.Is(err, store.ErrPoolNotFound):
		return "Pool not found"

	case errors.Is(err, service.ErrUnknownSubmission), errors.Is(err, store.ErrSubmissionNotFound):
		return "Submission not found"

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateSubmission):
		return "Item already answered in this sitting"

	case errors.Is(err, service.ErrSittingNotFinished):
		return "Sitting has unanswered items"

	case errors.Is(err, service.ErrInvalidTransition):
		return "Sitting does not allow this operation in its current state"

	case errors.Is(err, service.ErrNotRetryable):
		return "Submission cannot be retried"

	case errors.Is(err, service.ErrNothingDue):
		return "Nothing is due for review"

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrSubmissionAnswerEmpty):
		return "Answer cannot be empty"

	case errors.Is(err, domain.ErrPoolTitleEmpty):
		return "Title cannot be empty"

	case errors.Is(err, domain.ErrConceptEmpty):
		return "Concepts cannot be empty"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrValidation):
		return "Validation failed"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. Client errors get the
// message from GetSafeErrorMessage (or the field message of a
// domain.ValidationError); server errors get defaultMsg, or a generic
// message when defaultMsg is empty. The full error is logged, redacted.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)

	var message string
	switch {
	case status >= http.StatusInternalServerError:
		message = defaultMsg
		if message == "" {
			message = GetSafeErrorMessage(nil)
		}
	case status == http.StatusBadRequest:
		message = validationMessage(err)
	default:
		message = GetSafeErrorMessage(err)
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError responds 400 to a request body rejected by the validator.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// validationMessage prefers the field-level message of a ValidationError.
func validationMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Message)
	}
	return GetSafeErrorMessage(err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", jsonFieldName(fe.Field()), getValidationTagMessage(fe.Tag()))
	}

	// Errors that only survived as text, e.g. after redaction.
	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := jsonFieldName(fieldParts[1])
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// jsonFieldName turns a Go field name such as PoolID into pool_id.
func jsonFieldName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid", "uuid4":
		return "invalid ID format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "dive":
		return "invalid entry"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
