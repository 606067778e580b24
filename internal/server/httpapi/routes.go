package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lifesignal/lifesignal/internal/obs"
)

// Routes wires the chi router. Everything under /v1 except session issuance
// requires a bearer token, and every authenticated route sits behind the
// lock interceptor: a locked principal gets 403 plus recovery guidance no
// matter what they call. The lock routes themselves stay outside the
// interceptor so a trustee who happens to be locked can still help someone
// else recover.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(obs.Instrument)
	r.Use(h.rateLimit)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/session", h.handleSession)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)
			r.Use(h.lockInterceptor)

			r.Get("/status", h.handleStatus)

			r.Post("/credential", h.handleSetCredential)
			r.Post("/credential/verify", h.handleVerifyCredential)

			r.Post("/heartbeat", h.handleHeartbeat)
			r.Put("/threshold", h.handleSetThreshold)

			r.Post("/trustees", h.handleAcceptTrustee)
			r.Get("/trustees", h.handleListTrustees)
			r.Delete("/trustees/{id}", h.handleRevokeTrustee)

			r.Post("/vault", h.handleAddEntry)
			r.Get("/vault", h.handleListEntries)
			r.Post("/vault/upload-url", h.handleUploadURL)
			r.Get("/vault/{id}/reveal", h.handleRevealEntry)
			r.Put("/vault/{id}/recipients", h.handleUpdateRecipients)
			r.Delete("/vault/{id}", h.handleDeleteEntry)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)

			r.Get("/lock/requests", h.handleLockRequests)
			r.Post("/lock/unlock", h.handleUnlock)
		})
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
