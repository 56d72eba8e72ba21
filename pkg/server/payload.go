package server

import (
	"encoding/json"
	"mime"
	"net/url"
	"strings"

	apperrors "github.com/zeriontech/codestore/pkg/errors"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

type extractRequest struct {
	Text interface{} `json:"text"`
}

// normalizeText turns an extraction request body into plain text according
// to its Content-Type. JSON bodies must carry a non-empty "text" string.
// Form bodies use their "text" field, or the whole decoded body when absent.
// Anything else is taken verbatim.
func normalizeText(contentType string, body []byte) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case contentTypeJSON:
		var payload extractRequest
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", apperrors.NewAppError(apperrors.ErrMalformedInput, msgInvalidJSON, err)
		}
		text, ok := payload.Text.(string)
		if !ok || strings.TrimSpace(text) == "" {
			return "", apperrors.NewAppError(apperrors.ErrInvalidArgument, msgTextRequired, nil)
		}
		return text, nil

	case contentTypeForm:
		raw := string(body)
		if form, err := url.ParseQuery(raw); err == nil && form.Has("text") {
			return nonEmpty(form.Get("text"))
		}
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			decoded = raw
		}
		return nonEmpty(decoded)

	default:
		return nonEmpty(string(body))
	}
}

func nonEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperrors.NewAppError(apperrors.ErrInvalidArgument, msgEmptyBody, nil)
	}
	return text, nil
}
