package server

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/zeriontech/codestore/pkg/errors"
	"github.com/zeriontech/codestore/pkg/extract"
	"github.com/zeriontech/codestore/pkg/store"
	"github.com/zeriontech/codestore/pkg/ttl"
)

const (
	ExpiresAtHeader     = "X-Expires-At"
	TTLSecondsHeader    = "X-Ttl-Seconds"
	TTLHeader           = "X-Ttl"
	DigitsHeader        = "X-Digits"
	CharacterTypeHeader = "X-Character-Type"
)

func (server *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (server *Server) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	key := pathKey(r)
	if key == "" {
		server.Logger.Warn("missing key", requestFields(r)...)
		writeText(w, http.StatusBadRequest, msgKeyRequired)
		return
	}
	fields := append(requestFields(r), zap.String("key", key))

	item, err := server.Repo.GetItem(r.Context(), key)
	if apperrors.Is(err, store.ErrNotFound) {
		server.Prometheus.ItemMissCounter.WithLabelValues("missing").Inc()
		server.Logger.Warn("item not found", fields...)
		writeText(w, http.StatusNotFound, msgItemNotFound)
		return
	}
	if err != nil {
		server.Logger.Error("get item failed", append(fields, zap.Error(err))...)
		writeText(w, http.StatusInternalServerError, msgGetFailed)
		return
	}

	if server.Policy.IsExpired(*item) {
		server.Prometheus.ItemMissCounter.WithLabelValues("expired").Inc()
		server.Logger.Warn("item expired",
			append(fields, zap.Int64("itemTtl", item.TTL), zap.Int64("currentTime", server.Policy.Now()))...)
		writeText(w, http.StatusNotFound, msgItemNotFound)
		return
	}

	server.Prometheus.ItemHitCounter.Inc()
	server.Logger.Info("item retrieved", fields...)
	writeText(w, http.StatusOK, item.Value)
}

func (server *Server) PutItemHandler(w http.ResponseWriter, r *http.Request) {
	key := pathKey(r)
	if key == "" {
		server.Logger.Warn("missing key", requestFields(r)...)
		writeText(w, http.StatusBadRequest, msgKeyRequired)
		return
	}
	fields := append(requestFields(r), zap.String("key", key))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		server.Logger.Warn("could not read request body", append(fields, zap.Error(err))...)
		writeText(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if len(body) == 0 {
		writeText(w, http.StatusBadRequest, msgValueRequired)
		return
	}

	expiresAt := server.Policy.CalculateExpiration(server.requestTTL(r))
	item, err := server.Repo.PutItem(r.Context(), key, string(body), expiresAt)
	if err != nil {
		server.Logger.Error("put item failed", append(fields, zap.Error(err))...)
		writeText(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	server.Logger.Info("item saved", append(fields, zap.Int64("ttl", item.TTL))...)
	w.Header().Set(ExpiresAtHeader, strconv.FormatInt(item.TTL, 10))
	writeText(w, http.StatusOK, msgSaved)
}

func (server *Server) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	key := pathKey(r)
	if key == "" {
		server.Logger.Warn("missing key", requestFields(r)...)
		writeText(w, http.StatusBadRequest, msgKeyRequired)
		return
	}

	fields := append(requestFields(r), zap.String("key", key))

	if err := server.Repo.DeleteItem(r.Context(), key); err != nil {
		server.Logger.Error("delete item failed", append(fields, zap.Error(err))...)
		writeText(w, http.StatusInternalServerError, msgDeleteFailed)
		return
	}

	server.Logger.Info("item deleted", fields...)
	writeText(w, http.StatusOK, msgDeleted)
}

// ExtractCodeHandler finds a code in the request body and stores it under
// the path key with the usual ttl rules.
func (server *Server) ExtractCodeHandler(w http.ResponseWriter, r *http.Request) {
	key := pathKey(r)
	if key == "" {
		server.Logger.Warn("missing key", requestFields(r)...)
		writeText(w, http.StatusBadRequest, msgKeyNotInPath)
		return
	}
	fields := append(requestFields(r), zap.String("key", key))

	opts, err := server.extractOptions(r)
	if err != nil {
		server.Logger.Warn("invalid character type", append(fields, zap.Error(err))...)
		writeText(w, http.StatusBadRequest, msgInvalidClass)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		server.Logger.Warn("could not read request body", append(fields, zap.Error(err))...)
		writeText(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if len(body) == 0 {
		writeText(w, http.StatusBadRequest, msgEmptyBody)
		return
	}

	text, err := normalizeText(r.Header.Get("Content-Type"), body)
	if err != nil {
		server.Logger.Warn("rejected extraction body", append(fields, zap.Error(err))...)
		writeError(w, err)
		return
	}

	code, found := extract.Extract(text, opts)
	if !found {
		server.Logger.Warn("no code found",
			append(fields, zap.Int("digits", opts.Digits), zap.String("characterType", string(opts.Class)))...)
		writeText(w, http.StatusBadRequest, noCodeMessage(opts))
		return
	}

	expiresAt := server.Policy.CalculateExpiration(server.requestTTL(r))
	if _, err := server.Repo.PutItem(r.Context(), key, code, expiresAt); err != nil {
		server.Logger.Error("store extracted code failed", append(fields, zap.Error(err))...)
		writeText(w, http.StatusInternalServerError, msgInternal)
		return
	}

	server.Prometheus.CodeExtractedCounter.WithLabelValues(string(opts.Class)).Inc()
	server.Logger.Info("code extracted",
		append(fields, zap.String("characterType", string(opts.Class)), zap.Int64("ttl", expiresAt))...)
	w.Header().Set(ExpiresAtHeader, strconv.FormatInt(expiresAt, 10))
	writeText(w, http.StatusOK, codeStoredMessage(code))
}

func (server *Server) missingKey(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		server.Logger.Warn("missing key", requestFields(r)...)
		writeText(w, http.StatusBadRequest, message)
	}
}

// requestTTL returns the requested ttl in seconds, or 0 for the default.
// Headers take precedence over the ttl query parameter.
func (server *Server) requestTTL(r *http.Request) int64 {
	header := firstNonEmpty(r.Header.Get(TTLSecondsHeader), r.Header.Get(TTLHeader))
	return server.Policy.ParseDuration(header, r.URL.Query().Get("ttl"))
}

func (server *Server) extractOptions(r *http.Request) (extract.Options, error) {
	query := r.URL.Query()

	class, err := extract.ParseCharacterClass(
		firstNonEmpty(r.Header.Get(CharacterTypeHeader), query.Get("characterType")))
	if err != nil {
		return extract.Options{}, err
	}

	digits := 0
	for _, raw := range []string{r.Header.Get(DigitsHeader), query.Get("digits")} {
		if raw == "" {
			continue
		}
		n, err := ttl.ParsePositive(raw)
		if err != nil || n > int64(maxDigits) {
			server.Logger.Warn("ignoring invalid digits value", zap.String("value", raw), zap.Error(err))
			continue
		}
		digits = int(n)
		break
	}

	return extract.Options{Digits: digits, Class: class}.Normalize(), nil
}

const maxDigits = 1 << 10

// pathKey returns the {key} path parameter, or "" when it is blank. chi
// routes on RawPath when the request has one, so only then is the parameter
// still escaped.
func pathKey(r *http.Request) string {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}
	}
	if strings.TrimSpace(key) == "" {
		return ""
	}
	return key
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
