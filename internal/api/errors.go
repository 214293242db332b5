package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("network error")
	// ErrAPI matches every *APIError.
	ErrAPI = errors.New("api error")
	// ErrAuth matches every *AuthError.
	ErrAuth = errors.New("authentication rejected")
)

// NetworkError reports a request that never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// APIError is a non-2xx response carrying the server's message.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// AuthError is a response rejecting the caller's credentials, or a signup or
// login request the server refused.
type AuthError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// errorBody is the API's error envelope.
type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b errorBody) message(status int) string {
	switch {
	case b.Error.Message != "":
		return b.Error.Message
	case b.Error.Title != "":
		return b.Error.Title
	default:
		return http.StatusText(status)
	}
}

// classify maps a failed response to AuthError or APIError. Credential
// endpoints report every client error as an auth failure.
func classify(op string, status int, credentialCall bool, msg string) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &AuthError{Op: op, StatusCode: status, Message: msg}
	case credentialCall && status >= 400 && status < 500:
		return &AuthError{Op: op, StatusCode: status, Message: msg}
	default:
		return &APIError{Op: op, StatusCode: status, Message: msg}
	}
}
