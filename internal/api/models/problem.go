package models

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ProblemContentType is the media type of every error body.
const ProblemContentType = "application/problem+json"

const problemBase = "https://api.ecosphere.dev/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation       = problemBase + "validation-error"
	ProblemTypeNotFound         = problemBase + "not-found"
	ProblemTypeMethodNotAllowed = problemBase + "method-not-allowed"
	ProblemTypeUnsupportedMedia = problemBase + "unsupported-media-type"
	ProblemTypeTLSRequired      = problemBase + "tls-required"
	ProblemTypeReportFailed     = problemBase + "report-generation-failed"
	ProblemTypeInternal         = problemBase + "internal-error"
	ProblemTypeUnavailable      = problemBase + "service-unavailable"
)

var problemTitles = map[string]string{
	ProblemTypeValidation:       "Validation error",
	ProblemTypeNotFound:         "Not found",
	ProblemTypeMethodNotAllowed: "Method not allowed",
	ProblemTypeUnsupportedMedia: "Unsupported media type",
	ProblemTypeTLSRequired:      "TLS required",
	ProblemTypeReportFailed:     "Report generation failed",
	ProblemTypeInternal:         "Internal server error",
	ProblemTypeUnavailable:      "Service unavailable",
}

// Problem is an RFC 7807 error body. TraceID carries the request ID so a
// client report can be matched to server logs.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid request field. Field uses the JSON path
// of the input, e.g. "location.latitude".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewProblem builds a Problem of an arbitrary type.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{Type: problemType, Title: title, Status: status, TraceID: traceID}
}

func known(problemType string, status int, traceID, detail string) *Problem {
	p := NewProblem(problemType, problemTitles[problemType], status, traceID)
	p.Detail = detail
	return p
}

// Error lets a Problem travel as an error value.
func (p *Problem) Error() string {
	if p.Detail == "" {
		return fmt.Sprintf("%d %s", p.Status, p.Title)
	}
	return fmt.Sprintf("%d %s: %s", p.Status, p.Title, p.Detail)
}

// Write sends the Problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", ProblemContentType)
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := known(ProblemTypeValidation, http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

func NewNotFound(traceID, detail string) *Problem {
	return known(ProblemTypeNotFound, http.StatusNotFound, traceID, detail)
}

func NewMethodNotAllowed(traceID, detail string) *Problem {
	return known(ProblemTypeMethodNotAllowed, http.StatusMethodNotAllowed, traceID, detail)
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return known(ProblemTypeUnsupportedMedia, http.StatusUnsupportedMediaType, traceID, detail)
}

// NewTLSRequired rejects a request that arrived over plain HTTP.
func NewTLSRequired(traceID string) *Problem {
	return known(ProblemTypeTLSRequired, http.StatusForbidden, traceID, "This endpoint requires HTTPS")
}

// NewReportGenerationFailed is returned when not even a fallback report could
// be assembled.
func NewReportGenerationFailed(traceID string) *Problem {
	return known(ProblemTypeReportFailed, http.StatusInternalServerError, traceID, "failed to generate environmental report")
}

func NewInternalError(traceID, detail string) *Problem {
	return known(ProblemTypeInternal, http.StatusInternalServerError, traceID, detail)
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	return known(ProblemTypeUnavailable, http.StatusServiceUnavailable, traceID, detail)
}
