package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/examlens/examlens/internal/observability"
	"github.com/examlens/examlens/internal/pipeline"
)

const (
	runIDHeader     = "X-Run-ID"
	errorKindHeader = "X-Error-Kind"
)

type chatRequest struct {
	Question string `json:"question"`
}

// handleCompatChat serves the legacy front-end protocol: the question is
// the user_prompt query parameter and every outcome is HTTP 200.
func handleCompatChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeEnvelope(deps, w, r, pipeline.ErrorEnvelope(pipeline.KindInternal, "chat pipeline is not configured"), alwaysOK)
		return
	}
	question := r.URL.Query().Get("user_prompt")
	if strings.TrimSpace(question) == "" {
		writeEnvelope(deps, w, r, pipeline.ErrorEnvelope(pipeline.KindInvalidRequest, "user_prompt is required"), alwaysOK)
		return
	}
	writeEnvelope(deps, w, r, deps.Chat.Run(r.Context(), question), alwaysOK)
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeEnvelope(deps, w, r, pipeline.ErrorEnvelope(pipeline.KindInternal, "chat pipeline is not configured"), fixedStatus(http.StatusNotImplemented))
		return
	}
	limit := deps.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	var request chatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeEnvelope(deps, w, r, pipeline.ErrorEnvelope(pipeline.KindInvalidRequest, "invalid chat request body: "+err.Error()), statusForEnvelope)
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeEnvelope(deps, w, r, pipeline.ErrorEnvelope(pipeline.KindInvalidRequest, "question is required"), statusForEnvelope)
		return
	}

	writeEnvelope(deps, w, r, deps.Chat.Run(r.Context(), request.Question), statusForEnvelope)
}

func statusForEnvelope(envelope pipeline.Envelope) int {
	if !envelope.IsError() {
		return http.StatusOK
	}
	switch envelope.Kind {
	case pipeline.KindInvalidRequest:
		return http.StatusBadRequest
	case pipeline.KindUnsafeQuery, pipeline.KindQueryExecution:
		return http.StatusUnprocessableEntity
	case pipeline.KindMalformedOutput:
		return http.StatusBadGateway
	case pipeline.KindModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func alwaysOK(pipeline.Envelope) int { return http.StatusOK }

func fixedStatus(status int) func(pipeline.Envelope) int {
	return func(pipeline.Envelope) int { return status }
}

// writeEnvelope encodes before writing the status line. An envelope that
// cannot be encoded is replaced by an internal error envelope.
func writeEnvelope(deps Dependencies, w http.ResponseWriter, r *http.Request, envelope pipeline.Envelope, statusFor func(pipeline.Envelope) int) {
	body, err := json.Marshal(envelope)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "encode chat envelope failed",
				append(observability.RequestAttrs(r.Context()), slog.String("run_id", envelope.RunID), slog.Any("error", err))...)
		}
		runID := envelope.RunID
		envelope = pipeline.ErrorEnvelope(pipeline.KindInternal, "internal error")
		envelope.RunID = runID
		body, _ = json.Marshal(envelope)
	}
	if envelope.RunID != "" {
		w.Header().Set(runIDHeader, envelope.RunID)
	}
	if envelope.IsError() {
		w.Header().Set(errorKindHeader, string(envelope.Kind))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(envelope))
	_, _ = w.Write(append(body, '\n'))
}
