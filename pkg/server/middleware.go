package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/zeriontech/codestore/pkg/errors"
)

const (
	RequestIDHeader = "X-Request-Id"
	APIKeyHeader    = "X-Api-Key"
)

var (
	errMissingAPIKey = apperrors.NewAppError(apperrors.ErrUnauthenticated, msgMissingAPIKey, nil)
	errInvalidAPIKey = apperrors.NewAppError(apperrors.ErrUnauthorized, msgInvalidAPIKey, nil)
)

type requestIDKey struct{}

// RequestID reuses an incoming X-Request-Id or generates one, and echoes it
// on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// APIKeyAuth rejects requests without a valid x-api-key header. A missing
// header is 401, an empty or wrong one 403. When expected is empty any
// non-empty key is accepted.
func APIKeyAuth(expected string, disabled bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if disabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values, present := r.Header[APIKeyHeader]
			if !present {
				logger.Warn("missing api key", append(requestFields(r), headerNames(r))...)
				writeError(w, errMissingAPIKey)
				return
			}

			provided := ""
			if len(values) > 0 {
				provided = strings.TrimSpace(values[0])
			}
			if provided == "" || (expected != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1) {
				logger.Warn("invalid api key", append(requestFields(r), headerNames(r))...)
				writeError(w, errInvalidAPIKey)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Recoverer turns a panic in a handler into a 500 and keeps the process alive.
func (server *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				var err error
				switch x := rec.(type) {
				case string:
					err = errors.New(x)
				case error:
					err = x
				default:
					err = fmt.Errorf("unknown panic: %v", x)
				}
				server.Logger.Error("recovered from panic", append(requestFields(r), zap.Error(err))...)
				writeText(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Instrument counts every request by route pattern and status.
func (server *Server) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		server.Prometheus.TotalRequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()

		server.Logger.Debug("request served",
			append(requestFields(r), zap.String("route", route), zap.Int("status", status))...)
	})
}
