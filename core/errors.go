package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorCodeConfiguration     = "CRM_CONFIGURATION"
	ErrorCodeCredentialCorrupt = "CRM_CREDENTIAL_CORRUPT"
	ErrorCodeAuthRequired      = "CRM_AUTH_REQUIRED"
	ErrorCodeUnauthorized      = "CRM_UNAUTHORIZED"
	ErrorCodeAPIError          = "CRM_API_ERROR"
	ErrorCodeRequestFailed     = "CRM_REQUEST_FAILED"
	ErrorCodeNotFound          = "CRM_NOT_FOUND"
	ErrorCodeCreateFailed      = "CRM_CREATE_FAILED"
	ErrorCodeSSOFailed         = "CRM_SSO_FAILED"
	ErrorCodeBadInput          = "CRM_BAD_INPUT"
	ErrorCodeInternal          = "CRM_INTERNAL_ERROR"
)

// NewConfigurationError reports missing or unusable operator configuration,
// such as an absent encryption key. Not recoverable at request time.
func NewConfigurationError(message string) *goerrors.Error {
	return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryInternal).
		WithTextCode(ErrorCodeConfiguration))
}

// NewCredentialCorruptError reports a decryption integrity failure for a
// stored credential. The record is unusable and the failure must surface.
func NewCredentialCorruptError(message string, cause error) *goerrors.Error {
	if cause == nil {
		return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryInternal).
			WithTextCode(ErrorCodeCredentialCorrupt))
	}
	return ensureErrorEnvelope(goerrors.Wrap(cause, goerrors.CategoryInternal, message).
		WithTextCode(ErrorCodeCredentialCorrupt))
}

// NewAuthRequiredError means no usable token exists for the user; the caller
// should surface "not connected". Never retried.
func NewAuthRequiredError(providerID string) *goerrors.Error {
	return ensureErrorEnvelope(goerrors.New(
		"not connected to "+providerID,
		goerrors.CategoryAuth,
	).WithTextCode(ErrorCodeAuthRequired))
}

// NewUnauthorizedError means the provider rejected the presented token.
// Never retried; the caller must re-trigger refresh or re-auth.
func NewUnauthorizedError(message string) *goerrors.Error {
	return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(ErrorCodeUnauthorized))
}

// NewAPIError wraps a non-2xx provider response, keeping status and raw body.
func NewAPIError(message string, statusCode int, body string) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithCode(statusCode).
		WithTextCode(ErrorCodeAPIError)
	err.WithMetadata(map[string]any{
		"status_code": statusCode,
		"body":        body,
	})
	return ensureErrorEnvelope(err)
}

// NewRequestFailedError reports an exhausted retry budget with the last
// observed cause attached.
func NewRequestFailedError(cause error) *goerrors.Error {
	if cause == nil {
		return ensureErrorEnvelope(goerrors.New("request failed after retries", goerrors.CategoryExternal).
			WithTextCode(ErrorCodeRequestFailed))
	}
	return ensureErrorEnvelope(goerrors.Wrap(cause, goerrors.CategoryExternal, "request failed after retries").
		WithTextCode(ErrorCodeRequestFailed))
}

func NewNotFoundError(message string) *goerrors.Error {
	return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryNotFound).
		WithTextCode(ErrorCodeNotFound))
}

// NewCreateFailedError reports a provider success:false despite a 2xx
// transport result.
func NewCreateFailedError(message string) *goerrors.Error {
	return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryOperation).
		WithTextCode(ErrorCodeCreateFailed))
}

func NewSSOFailedError(message string) *goerrors.Error {
	return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryOperation).
		WithTextCode(ErrorCodeSSOFailed))
}

func NewBadInputError(message string) *goerrors.Error {
	return ensureErrorEnvelope(goerrors.New(message, goerrors.CategoryBadInput).
		WithTextCode(ErrorCodeBadInput))
}

// HasTextCode reports whether err carries the given taxonomy code.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), textCode)
}

// IsRetryable classifies an error for the transport retry loop. Auth failures,
// bad input, and corrupt credentials are terminal; provider and network
// failures are worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz,
			goerrors.CategoryBadInput, goerrors.CategoryValidation,
			goerrors.CategoryNotFound, goerrors.CategoryOperation:
			return false
		}
		switch strings.ToUpper(strings.TrimSpace(richErr.TextCode)) {
		case ErrorCodeAuthRequired, ErrorCodeUnauthorized,
			ErrorCodeConfiguration, ErrorCodeCredentialCorrupt:
			return false
		}
	}
	return true
}

// MapError normalizes any error into the crmbridge taxonomy envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not connected"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryAuth).
			WithTextCode(ErrorCodeAuthRequired))
	case strings.Contains(msg, "unauthorized"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryAuth).
			WithTextCode(ErrorCodeUnauthorized))
	case strings.Contains(msg, "not found"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryNotFound).
			WithTextCode(ErrorCodeNotFound))
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryBadInput).
			WithTextCode(ErrorCodeBadInput))
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusFor(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorCodeBadInput
	case goerrors.CategoryNotFound:
		return ErrorCodeNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorCodeUnauthorized
	case goerrors.CategoryExternal:
		return ErrorCodeAPIError
	case goerrors.CategoryOperation:
		return ErrorCodeCreateFailed
	default:
		return ErrorCodeInternal
	}
}

func httpStatusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
