package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ecosphere/ecosphere/internal/api/models"
)

// Recovery answers a panicking handler with a 500 problem and logs the stack.
// http.ErrAbortHandler is re-panicked so net/http drops the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					handlePanic(log, w, r, v)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(log zerolog.Logger, w http.ResponseWriter, r *http.Request, v any) {
	if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
		panic(v)
	}

	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%v", v)
	}
	span := trace.SpanFromContext(r.Context())
	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, "panic")

	id := GetRequestID(r.Context())
	log.Error().
		Err(err).
		Str("request_id", id).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Bytes("stack", debug.Stack()).
		Msg("panic recovered")

	problem := models.NewInternalError(id, "an unexpected error occurred")
	problem.Instance = r.URL.Path
	problem.Write(w)
}
