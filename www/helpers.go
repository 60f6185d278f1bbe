package www

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"logitrack/workflow"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeCreated(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusCreated, v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg, "code": code})
}

// statusFor maps a workflow error kind to its HTTP status.
func statusFor(k workflow.Kind) int {
	switch k {
	case workflow.KindValidation:
		return http.StatusUnprocessableEntity
	case workflow.KindOutOfOrder, workflow.KindConflict:
		return http.StatusConflict
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeWorkflowError reports err with the status for its kind. Persistence
// details stay in the log.
func (h *Handlers) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	k := workflow.KindOf(err)
	msg := err.Error()
	if k == workflow.KindPersistence || k == 0 {
		h.logFn("www: %s %s: %v", r.Method, r.URL.Path, err)
		msg = "internal error"
	}
	writeError(w, statusFor(k), k.String(), msg)
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

// pathID parses an id route param, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := parseID(r, param)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid "+param)
		return 0, false
	}
	return id, true
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
