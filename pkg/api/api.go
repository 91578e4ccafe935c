package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/artifactlink/artifactlink/pkg/artifacts"
	"github.com/artifactlink/artifactlink/pkg/buildserver"
	"github.com/artifactlink/artifactlink/pkg/config"
	"github.com/artifactlink/artifactlink/pkg/links"
)

// Route paths. DownloadPath is deliberately outside the authed /api
// subtree: a portable link must work without credentials.
const (
	DownloadPath = "/artifact"
	CreatePath   = "/api/links"
	RevokePath   = "/api/links/revoke"
)

type API struct {
	config      config.API
	links       *links.Store
	buildServer buildserver.BuildServer
	artifacts   artifacts.ArtifactStore
}

func NewAPI(conf config.API, store *links.Store, buildServer buildserver.BuildServer, artifactStore artifacts.ArtifactStore) *API {
	return &API{
		config:      conf,
		links:       store,
		buildServer: buildServer,
		artifacts:   artifactStore,
	}
}

func RunAPI(ctx context.Context, conf config.API, mux *chi.Mux) {
	log.Debug().Int("port", conf.Port).Msg("Starting API")

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", conf.Port),
		Handler: mux,
	}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Error serving API")
			serverStopCtx()
		}
	}()

	go func() {
		<-ctx.Done() // Wait for the context to be canceled

		log.Debug().Msg("Stopping API")

		// Gracefully shutdown server
		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Error().Err(err).Msg("Error shutting down API")
		}

		cancel()

		serverStopCtx()
	}()

	log.Debug().Msg("Waiting for graceful shutdown")
	<-serverCtx.Done()

	log.Debug().Msg("API server stopped")
}
