package bedrockllm

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrInvalidRequest indicates the request fields are malformed or out of range.
	ErrInvalidRequest = errors.New("bedrockllm: invalid request")

	// ErrInvalidRole indicates a message role other than "user" or "assistant".
	ErrInvalidRole = errors.New("bedrockllm: invalid message role")

	// ErrRemoteInvocation indicates the generation service call failed.
	ErrRemoteInvocation = errors.New("bedrockllm: remote invocation failed")

	// ErrMalformedResponse indicates the service answered with a payload we could not read.
	ErrMalformedResponse = errors.New("bedrockllm: malformed response")

	// ErrRateLimited indicates the service throttled the request.
	ErrRateLimited = errors.New("bedrockllm: rate limit exceeded")

	// ErrAuth indicates missing, expired or rejected credentials.
	ErrAuth = errors.New("bedrockllm: authentication failed")
)

// ValidationError represents an error in request field validation.
// It is always returned before any network call is made.
type ValidationError struct {
	Field  string // The field that failed validation (semantic name)
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidRequest)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InvalidRoleError reports a message whose role is not "user" or "assistant".
type InvalidRoleError struct {
	Index int    // Position of the message in the conversation
	Role  string // The rejected role
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("message %d: invalid role '%s' (must be 'user' or 'assistant')", e.Index, e.Role)
}

// Unwrap returns both ErrInvalidRole and ErrInvalidRequest so either can be matched with errors.Is.
func (e *InvalidRoleError) Unwrap() []error {
	return []error{ErrInvalidRole, ErrInvalidRequest}
}

// RemoteInvocationError represents any failure reported by, or in talking to,
// the generation service: transport errors, API errors (auth, throttling,
// validation on the provider side) and unreadable responses.
type RemoteInvocationError struct {
	Provider   string // "bedrock", "anthropic", "lorem"
	Operation  string // e.g. "InvokeModel", "ConverseStream"
	ModelID    string // The model that was called
	StatusCode int    // HTTP status code (0 if unknown)
	Code       string // Provider error code (e.g. "ThrottlingException")
	Message    string // Error message from provider
	Retryable  bool   // Whether the provider marked or implied the failure as transient
	Err        error  // Underlying cause
}

func (e *RemoteInvocationError) Error() string {
	prefix := fmt.Sprintf("%s %s", e.Provider, e.Operation)
	if e.ModelID != "" {
		prefix += fmt.Sprintf(" (model %s)", e.ModelID)
	}
	switch {
	case e.StatusCode > 0 && e.Code != "":
		return fmt.Sprintf("%s failed (status %d, %s): %s", prefix, e.StatusCode, e.Code, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s failed (status %d): %s", prefix, e.StatusCode, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s failed (%s): %s", prefix, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s failed: %s", prefix, e.Message)
	}
}

func (e *RemoteInvocationError) Unwrap() error {
	return e.Err
}

// Is matches ErrRemoteInvocation, plus ErrRateLimited and ErrAuth when the
// status or error code implies them.
func (e *RemoteInvocationError) Is(target error) bool {
	switch target {
	case ErrRemoteInvocation:
		return true
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests || throttlingCodes[e.Code]
	case ErrAuth:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden || authCodes[e.Code]
	}
	return false
}

var throttlingCodes = map[string]bool{
	"ThrottlingException":           true,
	"TooManyRequestsException":      true,
	"ServiceQuotaExceededException": true,
	"rate_limit_error":              true,
}

var authCodes = map[string]bool{
	"AccessDeniedException":       true,
	"UnrecognizedClientException": true,
	"ExpiredTokenException":       true,
	"InvalidSignatureException":   true,
	"authentication_error":        true,
	"permission_error":            true,
}

// IsRetryable checks if an error is potentially retryable.
// Retry policy itself belongs to the SDK transport; this only classifies.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var remoteErr *RemoteInvocationError
	if errors.As(err, &remoteErr) {
		return remoteErr.Retryable
	}

	return errors.Is(err, ErrRateLimited)
}

// IsInvalidRequest checks if an error indicates invalid request fields.
// These errors are not retryable and require request changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidRequest) {
		return true
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return true
	}

	var roleErr *InvalidRoleError
	return errors.As(err, &roleErr)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuth)
}
