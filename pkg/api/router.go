package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func CreateMux(a *API) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(PrometheusMiddleware)

	// Public routes. Downloading via a portable link is the one path
	// deliberately exempt from authentication.
	r.Get(DownloadPath, a.Download)
	r.Get("/healthcheck", a.Healthcheck)
	r.Handle("/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"User-Agent", "Content-Type", "Accept", "Authorization", "X-Auth-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	api.Use(a.AuthMiddleware)
	api.Post("/links", a.Generate)
	api.Get("/links", a.ListLinks)
	api.Post("/links/revoke", a.Revoke)

	r.Mount("/api", api)
	return r
}
