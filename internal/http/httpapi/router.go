package httpapi

import (
	"net/http"

	"mediagen/internal/http/handlers"
	"mediagen/internal/infra"
	appmw "mediagen/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmw.Logger(logger),
		appmw.CORS(cfg.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(appmw.AuthJWT(cfg.JWTSecret))

		r.Route("/v1/generations", func(r chi.Router) {
			r.Post("/", app.GenerationsCreate)
			r.Get("/", app.GenerationsList)
			r.Get("/{job_id}", app.GenerationStatus)
		})
		r.Get("/v1/credits", app.CreditsBalance)
	})

	return r
}
