package www

import (
	"net/http"

	"logitrack/coil"
)

func (h *Handlers) apiListCoils(w http.ResponseWriter, r *http.Request) {
	coils, err := h.engine.Coils().List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, coils)
}

func (h *Handlers) apiCreateCoil(w http.ResponseWriter, r *http.Request) {
	var req coil.NewCoil
	if !decode(w, r, &req) {
		return
	}
	c, err := h.engine.Coils().Create(r.Context(), req, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeCreated(w, c)
}

func (h *Handlers) apiGetCoil(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.engine.Coils().Get(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handlers) apiDeleteCoil(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.Coils().Delete(r.Context(), id, actor(r)); err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiCoilStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	c, err := h.engine.Coils().Transition(r.Context(), id, req.Status, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, c)
}
