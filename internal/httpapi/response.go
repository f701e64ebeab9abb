package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"volunteercore/internal/core"
)

type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Current   string `json:"current,omitempty"`
	Requested string `json:"requested,omitempty"`
}

type failureBody struct {
	RecipientID string `json:"recipient_id"`
	Error       string `json:"error"`
}

type dispatchBody struct {
	Event     string        `json:"event"`
	Attempted int           `json:"attempted"`
	Delivered []string      `json:"delivered"`
	Failures  []failureBody `json:"failures,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type outcomeResponse struct {
	Application   core.ApplicationView `json:"application"`
	Notifications dispatchBody         `json:"notifications"`
}

func newOutcomeResponse(out core.Outcome) outcomeResponse {
	report := out.Notifications
	body := dispatchBody{
		Event:     string(report.Event),
		Attempted: report.Attempted,
		Delivered: report.Delivered,
	}
	if body.Delivered == nil {
		body.Delivered = []string{}
	}
	for _, f := range report.Failures {
		body.Failures = append(body.Failures, failureBody{RecipientID: f.RecipientID, Error: f.Err.Error()})
	}
	if err := report.Err(); err != nil {
		body.Error = err.Error()
	}
	return outcomeResponse{Application: out.Application, Notifications: body}
}

func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindNotFound, core.KindRequesterNotFound:
		return http.StatusNotFound
	case core.KindInvalidStatus, core.KindInvalidInput, core.KindIllegalTransition,
		core.KindDuplicateApplication, core.KindProgramNotOpen:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(message string) error {
	return &core.Error{Kind: core.KindInvalidInput, Message: message}
}

func writeError(w http.ResponseWriter, err error) {
	var le *core.Error
	if !errors.As(err, &le) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Kind: string(core.KindStoreError), Message: "internal error"})
		return
	}
	status := statusFor(le.Kind)
	message := le.Error()
	if status == http.StatusInternalServerError {
		// wrapped driver errors stay in the server log
		message = le.Message
	}
	writeJSON(w, status, errorBody{
		Kind:      string(le.Kind),
		Message:   message,
		Field:     le.Field,
		Current:   string(le.Current),
		Requested: string(le.Requested),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
