package www

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"logitrack/progression"
)

func (h *Handlers) apiListPipes(w http.ResponseWriter, r *http.Request) {
	heatID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pipes, err := h.engine.Pipes().ListPipes(r.Context(), heatID)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, pipes)
}

func (h *Handlers) apiCreatePipe(w http.ResponseWriter, r *http.Request) {
	heatID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req progression.NewPipe
	if !decode(w, r, &req) {
		return
	}
	p, err := h.engine.Pipes().CreatePipe(r.Context(), heatID, req, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeCreated(w, p)
}

func (h *Handlers) apiGetPipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.engine.Pipes().GetPipe(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handlers) apiListPipeSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	steps, err := h.engine.Pipes().ListSteps(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, steps)
}

// pipeStep parses the {id} and {step} route params.
func pipeStep(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid step")
		return 0, 0, false
	}
	return id, step, true
}

func (h *Handlers) apiStartStep(w http.ResponseWriter, r *http.Request) {
	id, step, ok := pipeStep(w, r)
	if !ok {
		return
	}
	var req progression.StepInput
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.engine.Pipes().StartStep(r.Context(), id, step, req, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (h *Handlers) apiCompleteStep(w http.ResponseWriter, r *http.Request) {
	id, step, ok := pipeStep(w, r)
	if !ok {
		return
	}
	var req progression.Completion
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.engine.Pipes().CompleteStep(r.Context(), id, step, req, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (h *Handlers) apiCorrectStep(w http.ResponseWriter, r *http.Request) {
	id, step, ok := pipeStep(w, r)
	if !ok {
		return
	}
	var req progression.Correction
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.engine.Pipes().CorrectNonConformity(r.Context(), id, step, req, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (h *Handlers) apiSkipStep(w http.ResponseWriter, r *http.Request) {
	id, step, ok := pipeStep(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.engine.Pipes().SkipStep(r.Context(), id, step, req.Reason, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (h *Handlers) apiScrapPipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := h.engine.Pipes().Scrap(r.Context(), id, req.Reason, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, p)
}
