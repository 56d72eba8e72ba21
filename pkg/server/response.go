package server

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/zeriontech/codestore/pkg/errors"
	"github.com/zeriontech/codestore/pkg/extract"
)

const (
	msgMissingAPIKey = "Missing API key. Please provide a valid x-api-key header."
	msgInvalidAPIKey = "Invalid API key. Please provide a valid x-api-key header."

	msgKeyRequired    = "Key is required"
	msgItemNotFound   = "Item not found"
	msgGetFailed      = "Error retrieving item"
	msgSaved          = "Item successfully saved"
	msgValueRequired  = "Value is required in the request body"
	msgSaveFailed     = "Error saving item"
	msgDeleted        = "Item successfully deleted"
	msgDeleteFailed   = "Error deleting item"
	msgInvalidBody    = "Invalid request body"
	msgKeyNotInPath   = "Key must be specified in the path"
	msgEmptyBody      = "Request body cannot be empty"
	msgInvalidJSON    = "Invalid JSON format in request body"
	msgTextRequired   = `The "text" field is required in the request body`
	msgInvalidClass   = "Invalid character type. Must be one of: 'numeric', 'alphanumeric'"
	msgInternal       = "An error occurred while processing your request"
	msgCodeStoredTmpl = "Code extracted and stored successfully: %s"
	msgNoCodeTmpl     = "No code matching the criteria found in the text (digits: %d, characterType: %s)"
)

func codeStoredMessage(code string) string {
	return fmt.Sprintf(msgCodeStoredTmpl, code)
}

func noCodeMessage(opts extract.Options) string {
	return fmt.Sprintf(msgNoCodeTmpl, opts.Digits, opts.Class)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// writeError answers with the status of err's code and its caller-safe message.
func writeError(w http.ResponseWriter, err error) {
	writeText(w, apperrors.StatusOf(err), messageOf(err))
}

func messageOf(err error) string {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		return appErr.Message()
	}
	return msgInternal
}

func requestFields(r *http.Request) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("sourceIp", r.RemoteAddr),
		zap.String("contentType", r.Header.Get("Content-Type")),
		zap.String("userAgent", r.UserAgent()),
	}
	if id := requestIDFrom(r.Context()); id != "" {
		fields = append(fields, zap.String("requestId", id))
	}
	for _, name := range []string{TTLSecondsHeader, TTLHeader, DigitsHeader, CharacterTypeHeader} {
		if v := r.Header.Get(name); v != "" {
			fields = append(fields, zap.String(strings.ToLower(name), v))
		}
	}
	return fields
}

// headerNames lists the request's header names, never their values.
func headerNames(r *http.Request) zap.Field {
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	return zap.Strings("headers", names)
}
