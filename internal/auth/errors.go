package auth

import (
	"errors"

	"bookcrew/internal/platform/docstore"
)

// Provider-style error codes returned in the error envelope.
const (
	CodeEmailInUse          = "auth/email-already-in-use"
	CodeInvalidEmail        = "auth/invalid-email"
	CodeWeakPassword        = "auth/weak-password"
	CodeInvalidCredential   = "auth/invalid-credential"
	CodeUserNotFound        = "auth/user-not-found"
	CodeExpiredActionCode   = "auth/expired-action-code"
	CodeInvalidActionCode   = "auth/invalid-action-code"
	CodeRequiresRecentLogin = "auth/requires-recent-login"
	CodeInvalidNewEmail     = "auth/invalid-new-email"
	CodeUserTokenExpired    = "auth/user-token-expired"
	CodePermissionDenied    = "permission-denied"
	CodeUnavailable         = "unavailable"
)

const defaultMessage = "Something went wrong. Please try again."

var messages = map[string]string{
	CodeEmailInUse:          "This email is already in use.",
	CodeInvalidEmail:        "Enter a valid email address.",
	CodeWeakPassword:        "Password is too weak. Use at least 6 characters.",
	CodeInvalidCredential:   "Email or password is incorrect.",
	CodeUserNotFound:        "Email or password is incorrect.",
	CodeExpiredActionCode:   "This link has expired. Request a new one.",
	CodeInvalidActionCode:   "This link is invalid or has already been used.",
	CodeRequiresRecentLogin: "Could not start email address change. You may need to sign in again and retry.",
	CodeInvalidNewEmail:     "Enter a different email address.",
	CodeUserTokenExpired:    "Your session has expired. Sign in again.",
	CodePermissionDenied:    "Signed in, but access rules denied the profile write. Check the rules for users/{uid}.",
	CodeUnavailable:         "Could not reach the account service right now.",
}

// Message returns the user-facing text for code.
func Message(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return defaultMessage
}

type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func codeErr(code string) error { return &Error{Code: code} }

func wrapErr(code string, err error) error { return &Error{Code: code, Err: err} }

// CodeOf extracts the code carried by err. Untyped permission failures from
// the document store map to CodePermissionDenied; anything else is
// CodeUnavailable.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, docstore.ErrPermissionDenied) {
		return CodePermissionDenied
	}
	return CodeUnavailable
}
