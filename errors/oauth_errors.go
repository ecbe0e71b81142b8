package errors

import "fmt"

// StatusClass is the abstract outcome class the boundary layer maps to a
// transport status code. The core never deals in HTTP codes directly.
type StatusClass int

const (
	StatusBadRequest StatusClass = iota
	StatusUnauthorized
	StatusInternalServerError
)

// OAuth2Error represents a standardized OAuth 2.0 / UMA 2.0 protocol error.
// Code is the stable machine-readable error code, Description the
// human-readable detail, State the client correlation value echoed back on
// authorization request failures.
type OAuth2Error struct {
	Code        string      `json:"error"`
	Description string      `json:"error_description,omitempty"`
	URI         string      `json:"error_uri,omitempty"`
	State       string      `json:"state,omitempty"`
	Status      StatusClass `json:"-"`
	cause       error
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap exposes the preserved cause of wrapped downstream failures.
func (e *OAuth2Error) Unwrap() error {
	return e.cause
}

// WithState returns a copy of the error carrying the request state for
// client-side correlation.
func (e *OAuth2Error) WithState(state string) *OAuth2Error {
	clone := *e
	clone.State = state
	return &clone
}

// WithCause returns a copy of the error wrapping the given cause, reachable
// through errors.Is.
func (e *OAuth2Error) WithCause(cause error) *OAuth2Error {
	clone := *e
	clone.cause = cause
	return &clone
}

// Standard OAuth2 and UMA2 error codes.
const (
	InvalidRequest       = "invalid_request"
	UnauthorizedClient   = "unauthorized_client"
	AccessDenied         = "access_denied"
	UnsupportedGrantType = "unsupported_grant_type"
	InvalidScope         = "invalid_scope"
	InvalidClient        = "invalid_client"
	InvalidGrant         = "invalid_grant"
	ServerError          = "server_error"
	InvalidResourceSetID = "invalid_resource_set_id"
	AmbiguousRequestor   = "ambiguous_requestor"
	InvalidTicket        = "invalid_ticket"
	RequestDenied        = "request_denied"
	NeedInfo             = "need_info"
	UnhandledException   = "unhandled_exception"
	InternalError        = "internal_error"
)

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description, Status: StatusBadRequest}
}

func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidClient, Description: description, Status: StatusUnauthorized}
}

func NewInvalidGrant(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: description, Status: StatusBadRequest}
}

func NewInvalidScope(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidScope, Description: description, Status: StatusBadRequest}
}

func NewUnauthorizedClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: UnauthorizedClient, Description: description, Status: StatusUnauthorized}
}

func NewUnsupportedGrantType(grantType string) *OAuth2Error {
	return &OAuth2Error{
		Code:        UnsupportedGrantType,
		Description: fmt.Sprintf("the authorization grant type %q is not supported", grantType),
		Status:      StatusBadRequest,
	}
}

func NewInvalidResourceSetID(id string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidResourceSetID,
		Description: fmt.Sprintf("resource set %q does not exist", id),
		Status:      StatusBadRequest,
	}
}

func NewAmbiguousRequestor() *OAuth2Error {
	return &OAuth2Error{
		Code:        AmbiguousRequestor,
		Description: "more than one identity token was supplied across the permission requests",
		Status:      StatusBadRequest,
	}
}

func NewInvalidTicket(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidTicket, Description: description, Status: StatusBadRequest}
}

func NewRequestDenied(description string) *OAuth2Error {
	return &OAuth2Error{Code: RequestDenied, Description: description, Status: StatusUnauthorized}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: description, Status: StatusInternalServerError}
}

// NewInternalError wraps a store failure, preserving the cause for logging.
func NewInternalError(cause error) *OAuth2Error {
	return &OAuth2Error{
		Code:        InternalError,
		Description: "an internal error occurred while processing the request",
		Status:      StatusInternalServerError,
		cause:       cause,
	}
}

// NewUnhandledException wraps a downstream dependency failure (for example an
// unreachable SMS provider), preserving the original cause. The raw error is
// never leaked to the caller.
func NewUnhandledException(cause error) *OAuth2Error {
	return &OAuth2Error{
		Code:        UnhandledException,
		Description: "a downstream dependency failed while processing the request",
		Status:      StatusInternalServerError,
		cause:       cause,
	}
}

// PKCE specific errors.
func NewPKCERequired() *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRequest,
		Description: "PKCE is required for this client",
		Status:      StatusBadRequest,
	}
}

func NewInvalidPKCE(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRequest,
		Description: fmt.Sprintf("PKCE validation failed: %s", description),
		Status:      StatusBadRequest,
	}
}
