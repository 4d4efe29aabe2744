package gateway

import "net/http"

// AppError is a pipeline rejection with its exact external mapping.
// Kind feeds metrics and tracing; Message is the client-visible body.
type AppError struct {
	Status  int
	Kind    string
	Message string
	// WaitSeconds is only set for rate-limit rejections.
	WaitSeconds int
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	errMethodNotAllowed = &AppError{Status: http.StatusMethodNotAllowed, Kind: "method_not_allowed", Message: "Method not allowed"}
	errEmptyBody        = &AppError{Status: http.StatusBadRequest, Kind: "validation", Message: "Request body is required"}
	errMissingFields    = &AppError{Status: http.StatusBadRequest, Kind: "validation", Message: "Provider, messages, and userId are required"}
	errEmptyMessages    = &AppError{Status: http.StatusBadRequest, Kind: "validation", Message: "Messages must be a non-empty array"}
	errInvalidMessage   = &AppError{Status: http.StatusBadRequest, Kind: "validation", Message: "Invalid message format"}
	errNoAuthHeader     = &AppError{Status: http.StatusUnauthorized, Kind: "authentication", Message: "Authorization header required"}
	errInvalidToken     = &AppError{Status: http.StatusUnauthorized, Kind: "authentication", Message: "Invalid authentication token"}
	errIdentityMismatch = &AppError{Status: http.StatusForbidden, Kind: "authorization", Message: "User ID mismatch"}
	errUserNotFound     = &AppError{Status: http.StatusNotFound, Kind: "not_found", Message: "User not found"}
	errNoCredits        = &AppError{Status: http.StatusPaymentRequired, Kind: "credits", Message: "No AI credits remaining"}
	errUnsupported      = &AppError{Status: http.StatusBadRequest, Kind: "unsupported_provider", Message: "Unsupported AI provider"}
	errInternal         = &AppError{Status: http.StatusInternalServerError, Kind: "internal", Message: "Internal server error"}
)

func rateLimited(waitSeconds int) *AppError {
	return &AppError{
		Status:      http.StatusTooManyRequests,
		Kind:        "rate_limit",
		Message:     "Rate limit exceeded",
		WaitSeconds: waitSeconds,
	}
}
