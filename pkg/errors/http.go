package errors

import "net/http"

var statusByCode = map[string]int{
	ErrInvalidArgument: http.StatusBadRequest,
	ErrMalformedInput:  http.StatusBadRequest,
	ErrNotFound:        http.StatusNotFound,
	ErrUnauthenticated: http.StatusUnauthorized,
	ErrUnauthorized:    http.StatusForbidden,
	ErrUnavailable:     http.StatusInternalServerError,
	ErrInternal:        http.StatusInternalServerError,
}

// ToHTTPStatus converts an error code to an HTTP status code.
func ToHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusOf maps any error to an HTTP status through its code.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return ToHTTPStatus(CodeOf(err))
}
