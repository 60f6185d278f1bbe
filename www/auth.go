package www

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"logitrack/store"
	"logitrack/workflow"
)

const sessionName = "logitrack-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "logitrack-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // mill terminals use plain HTTP on the plant LAN
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type actorKey struct{}

// actorFromSession rebuilds the acting identity stored at login.
func (h *Handlers) actorFromSession(r *http.Request) (workflow.Actor, bool) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return workflow.Actor{}, false
	}
	id, _ := session.Values["operator_id"].(int64)
	name, _ := session.Values["display_name"].(string)
	role, _ := session.Values["role"].(string)
	a := workflow.Actor{ID: id, DisplayName: name, Role: role}
	return a, a.Validate() == nil
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := h.actorFromSession(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, a)))
	})
}

// actor returns the identity set by requireAuth.
func actor(r *http.Request) workflow.Actor {
	a, _ := r.Context().Value(actorKey{}).(workflow.Actor)
	return a
}

// withClientIP copies the address resolved by RealIP into the request
// context for audit entries.
func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(workflow.WithClientIP(r.Context(), ip)))
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	op, err := h.engine.DB().GetOperator(r.Context(), req.Username)
	if err != nil || !checkPassword(op.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["operator_id"] = op.ID
	session.Values["display_name"] = op.DisplayName
	session.Values["role"] = op.Role
	if err := session.Save(r, w); err != nil {
		h.logFn("auth: session save error: %v", err)
	}
	writeJSON(w, workflow.Actor{ID: op.ID, DisplayName: op.DisplayName, Role: op.Role})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Options.MaxAge = -1
	session.Save(r, w)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, actor(r))
}

func (h *Handlers) ensureDefaultAdmin() {
	ctx := context.Background()
	db := h.engine.DB()
	exists, err := db.OperatorExists(ctx)
	if err != nil || exists {
		return
	}
	hash, err := hashPassword("admin")
	if err != nil {
		return
	}
	err = db.CreateOperator(ctx, &store.Operator{
		Username:     "admin",
		DisplayName:  "Administrator",
		Role:         "admin",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		h.logFn("auth: create default operator: %v", err)
		return
	}
	h.logFn("auth: created default operator admin/admin")
}
