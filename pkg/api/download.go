package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/rs/zerolog/log"

	"github.com/artifactlink/artifactlink/pkg/artifacts"
)

// Download serves artifact bytes for a link id. The route is public:
// holding the id is the whole credential.
func (a *API) Download(w http.ResponseWriter, r *http.Request) {
	guid := r.URL.Query().Get("guid")

	// Report the logged-in user if one happens to be attached.
	origin := r.RemoteAddr
	if user, ok := a.buildServer.UserForToken(a.token(r)); ok {
		origin = user.Username
	}

	link, ok := a.links.Resolve(guid)
	if !ok {
		downloadsRejected.Inc()
		log.Error().Str("guid", guid).Str("origin", origin).Msg("Unknown ID for portable artifact link")
		http.Error(w, "Unknown ID for portable artifact link", http.StatusNotFound)
		return
	}

	// A link can outlive its build; re-check before serving.
	if _, found := a.buildServer.FindBuild(link.BuildID); !found {
		http.Error(w, "Build or artifact no longer exists", http.StatusNotFound)
		return
	}

	reader, err := a.artifacts.Open(link.BuildID, link.ArtifactPath)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			http.Error(w, "Build or artifact no longer exists", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("guid", guid).Msg("Unable to read artifact")
		http.Error(w, "Unable to read artifact", http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	log.Info().Str("guid", guid).Str("origin", origin).Stringer("link", link).Msg("Serving artifact")

	// Normalise to the final path segment so artifacts nested in
	// directories or archives download under a flat filename.
	filename := path.Base(link.ArtifactPath)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	// The store lock was released inside Resolve; a slow transfer here
	// never blocks other link operations.
	if _, err := io.Copy(w, reader); err != nil {
		log.Error().Err(err).Str("guid", guid).Msg("Error streaming artifact")
		return
	}
	downloadsServed.Inc()
}
