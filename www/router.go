package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"logitrack/engine"
	"logitrack/logging"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
	logFn    logging.LogFunc
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub(eng.LogFunc())
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
		logFn:    eng.LogFunc(),
	}

	h.ensureDefaultAdmin()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(withClientIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/events", hub.SSEHandler)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/api/health", h.apiHealthCheck)

	// Protected routes
	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/me", h.apiMe)

		r.Get("/catalog/steps", h.apiListSteps)
		r.Get("/catalog/delay-reasons", h.apiListDelayReasons)

		r.Get("/coils", h.apiListCoils)
		r.Post("/coils", h.apiCreateCoil)
		r.Get("/coils/{id}", h.apiGetCoil)
		r.Delete("/coils/{id}", h.apiDeleteCoil)
		r.Post("/coils/{id}/status", h.apiCoilStatus)

		r.Get("/heats", h.apiListHeats)
		r.Post("/heats", h.apiCreateHeat)
		r.Get("/heats/{id}", h.apiGetHeat)
		r.Put("/heats/{id}/properties", h.apiUpdateHeatProperties)
		r.Post("/heats/{id}/coil", h.apiAssignCoil)
		r.Post("/heats/{id}/certify", h.apiCertifyHeat)
		r.Post("/heats/{id}/coil-received", h.apiCoilReceived)
		r.Post("/heats/{id}/coil-installed", h.apiCoilInstalled)
		r.Post("/heats/{id}/checklist", h.apiValidateChecklist)
		r.Post("/heats/{id}/production", h.apiBeginProduction)
		r.Post("/heats/{id}/complete", h.apiCompleteHeat)
		r.Post("/heats/{id}/cancel", h.apiCancelHeat)
		r.Get("/heats/{id}/pipes", h.apiListPipes)
		r.Post("/heats/{id}/pipes", h.apiCreatePipe)
		r.Get("/heats/{id}/board", h.apiHeatBoard)

		r.Get("/pipes/{id}", h.apiGetPipe)
		r.Get("/pipes/{id}/steps", h.apiListPipeSteps)
		r.Post("/pipes/{id}/steps/{step}/start", h.apiStartStep)
		r.Post("/pipes/{id}/steps/{step}/complete", h.apiCompleteStep)
		r.Post("/pipes/{id}/steps/{step}/correct", h.apiCorrectStep)
		r.Post("/pipes/{id}/steps/{step}/skip", h.apiSkipStep)
		r.Post("/pipes/{id}/scrap", h.apiScrapPipe)

		r.Get("/audit", h.apiListAudit)
		r.Get("/audit/{entity}/{id}", h.apiEntityAudit)

		r.Get("/notifications", h.apiListNotifications)
		r.Post("/notifications/{id}/read", h.apiMarkNotificationRead)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}
