package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"volunteercore/internal/core"
	"volunteercore/internal/notify"
)

type handler struct {
	service *core.Service
	inbox   notify.Reader
}

type submitRequest struct {
	RequesterID string `json:"requester_id"`
	ProgramID   string `json:"program_id"`
	Reason      string `json:"reason"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.service.Submit(r.Context(), core.SubmitRequest{
		RequesterID: req.RequesterID,
		ProgramID:   req.ProgramID,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOutcomeResponse(out))
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	org := strings.TrimSpace(q.Get("organization_id"))
	program := strings.TrimSpace(q.Get("program_id"))
	var (
		apps []core.ApplicationView
		err  error
	)
	switch {
	case org != "" && program != "":
		writeError(w, badRequest("use either organization_id or program_id"))
		return
	case org != "":
		apps, err = h.service.ListByOrganization(r.Context(), org)
	case program != "":
		apps, err = h.service.ListByProgram(r.Context(), program)
	default:
		apps, err = h.service.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.service.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutcomeResponse(out))
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Withdraw(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutcomeResponse(out))
}

func (h *handler) notifications(w http.ResponseWriter, r *http.Request) {
	if h.inbox == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Kind: "unsupported", Message: "notifier does not retain notifications"})
		return
	}
	items, err := h.inbox.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
