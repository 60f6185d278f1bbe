package www

import (
	"net/http"

	"logitrack/catalog"
)

func (h *Handlers) apiListSteps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Catalog().ListSteps())
}

// apiListDelayReasons filters by ?checkpoint=reception|installation|step.
func (h *Handlers) apiListDelayReasons(w http.ResponseWriter, r *http.Request) {
	cp := catalog.Checkpoint(r.URL.Query().Get("checkpoint"))
	if cp != "" && !cp.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation", "unknown checkpoint "+string(cp))
		return
	}
	writeJSON(w, h.engine.Catalog().ListDelayReasons(cp))
}
