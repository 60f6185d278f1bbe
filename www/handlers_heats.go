package www

import (
	"context"
	"net/http"

	"logitrack/heat"
	"logitrack/store"
	"logitrack/workflow"
)

func (h *Handlers) apiListHeats(w http.ResponseWriter, r *http.Request) {
	heats, err := h.engine.Heats().List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, heats)
}

func (h *Handlers) apiCreateHeat(w http.ResponseWriter, r *http.Request) {
	var req heat.NewHeat
	if !decode(w, r, &req) {
		return
	}
	ht, err := h.engine.Heats().Create(r.Context(), req, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeCreated(w, ht)
}

func (h *Handlers) apiGetHeat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ht, err := h.engine.Heats().Get(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, ht)
}

// heatOp runs a body-less heat transition and answers with the heat.
func (h *Handlers) heatOp(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id int64, a workflow.Actor) (*store.Heat, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ht, err := fn(r.Context(), id, actor(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, ht)
}

func (h *Handlers) apiUpdateHeatProperties(w http.ResponseWriter, r *http.Request) {
	var req heat.Properties
	if !decode(w, r, &req) {
		return
	}
	h.heatOp(w, r, func(ctx context.Context, id int64, a workflow.Actor) (*store.Heat, error) {
		return h.engine.Heats().UpdateProperties(ctx, id, req, a)
	})
}

func (h *Handlers) apiAssignCoil(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoilID int64 `json:"coil_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.heatOp(w, r, func(ctx context.Context, id int64, a workflow.Actor) (*store.Heat, error) {
		return h.engine.Heats().AssignCoil(ctx, id, req.CoilID, a)
	})
}

func (h *Handlers) apiCertifyHeat(w http.ResponseWriter, r *http.Request) {
	h.heatOp(w, r, h.engine.Heats().Certify)
}

func (h *Handlers) apiCoilReceived(w http.ResponseWriter, r *http.Request) {
	var req heat.CheckpointInput
	if !decode(w, r, &req) {
		return
	}
	h.heatOp(w, r, func(ctx context.Context, id int64, a workflow.Actor) (*store.Heat, error) {
		return h.engine.Heats().RecordCoilReceived(ctx, id, req, a)
	})
}

func (h *Handlers) apiCoilInstalled(w http.ResponseWriter, r *http.Request) {
	var req heat.CheckpointInput
	if !decode(w, r, &req) {
		return
	}
	h.heatOp(w, r, func(ctx context.Context, id int64, a workflow.Actor) (*store.Heat, error) {
		return h.engine.Heats().RecordCoilInstalled(ctx, id, req, a)
	})
}

func (h *Handlers) apiValidateChecklist(w http.ResponseWriter, r *http.Request) {
	h.heatOp(w, r, h.engine.Heats().ValidateChecklist)
}

func (h *Handlers) apiBeginProduction(w http.ResponseWriter, r *http.Request) {
	h.heatOp(w, r, h.engine.Heats().BeginProduction)
}

func (h *Handlers) apiCompleteHeat(w http.ResponseWriter, r *http.Request) {
	h.heatOp(w, r, h.engine.Heats().Complete)
}

func (h *Handlers) apiCancelHeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.heatOp(w, r, func(ctx context.Context, id int64, a workflow.Actor) (*store.Heat, error) {
		return h.engine.Heats().Cancel(ctx, id, req.Reason, a)
	})
}

func (h *Handlers) apiHeatBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.engine.Board().HeatBoard(r.Context(), id)
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}
	writeJSON(w, b)
}
