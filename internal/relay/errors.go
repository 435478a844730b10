package relay

import (
	"fmt"
	"net/http"
)

// Error is a dispatch failure with an HTTP-equivalent status. Route handlers
// translate it into the webhook response; anything else is a plain 500.
type Error struct {
	Status int
	Code   string
	Detail string
	err    error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.err
}

func invalidPayload(err error) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "invalid_payload", Detail: "invalid payload", err: err}
}

func missingRepository() *Error {
	return &Error{Status: http.StatusBadRequest, Code: "missing_repository", Detail: "missing repository information"}
}

func unknownRepository(repo string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "unknown_repository", Detail: fmt.Sprintf("no integration found for repository %s", repo)}
}

func missingCredentials() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "missing_credentials", Detail: "missing webhook secret or signature"}
}

func signatureMismatch() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "signature_mismatch", Detail: "signature verification failed"}
}

func deliveryFailure(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "delivery_failure", Detail: "failed to deliver notification", err: err}
}
