package api

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"

	"github.com/artifactlink/artifactlink/pkg/buildserver"
	"github.com/artifactlink/artifactlink/pkg/links"
)

// canManage reports whether user may see or revoke a link: server
// admins always, otherwise EditProject on the build's project. When the
// build is gone only admins retain access.
func (a *API) canManage(user buildserver.User, link links.Link) bool {
	if user.Admin {
		return true
	}
	build, found := a.buildServer.FindBuild(link.BuildID)
	return found && a.buildServer.IsPermissionGranted(user.Username, build.ProjectID, buildserver.EditProject)
}

// ListLinks returns the live links visible to the caller, as an id
// keyed JSON object. Backs the manage page.
func (a *API) ListLinks(w http.ResponseWriter, r *http.Request) {
	user, ok := a.AuthGetUser(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	all := a.links.List()
	for id, link := range all {
		if !a.canManage(user, link) {
			delete(all, id)
		}
	}

	render.JSON(w, r, all)
}

// Revoke deletes a link. Responds 200 whether or not the id existed, so
// the manage page can't be used to probe for live ids.
func (a *API) Revoke(w http.ResponseWriter, r *http.Request) {
	user, ok := a.AuthGetUser(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	guid := r.FormValue("guid")

	link, found := a.links.Resolve(guid)
	if !found {
		render.PlainText(w, r, "ok")
		return
	}

	if !a.canManage(user, link) {
		http.Error(w, "User cannot manage links for this project", http.StatusForbidden)
		return
	}

	if a.links.Revoke(guid) {
		linksRevoked.Inc()
		log.Info().Str("user", user.Username).Str("guid", guid).Stringer("link", link).Msg("Revoked portable artifact link")
	}
	render.PlainText(w, r, "ok")
}
