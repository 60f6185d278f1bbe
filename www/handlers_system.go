package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"logitrack/audit"
)

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Status(r.Context())
	status := "ok"
	code := http.StatusOK
	if !s.Database {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, code, map[string]any{
		"status":      status,
		"database":    s.Database,
		"messaging":   s.Messaging,
		"redis":       s.Redis,
		"sse_clients": h.eventHub.ClientCount(),
	})
}

func (h *Handlers) apiListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Audit().List(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

func (h *Handlers) apiEntityAudit(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	switch entity {
	case audit.EntityCoil, audit.EntityHeat, audit.EntityPipe:
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "unknown entity "+entity)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.engine.Audit().ListEntity(r.Context(), entity, id)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

func (h *Handlers) apiListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Notifications().ListUnread(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (h *Handlers) apiMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.Notifications().MarkRead(r.Context(), id); err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
