package api

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/artifactlink/artifactlink/pkg/buildserver"
)

// Expiry bounds applied to callers without EditProject on the build's
// project. Requests outside the range are clamped, not rejected.
const (
	nonAdminMinMinutes = 5
	nonAdminMaxMinutes = 15
)

// linkPattern extracts the build id and artifact path from an artifact
// page URL, e.g. /repository/download/Main_Build/42:id/dist/app.zip.
var linkPattern = regexp.MustCompile(`/(\d+):id/(.*)`)

func parseLong(input string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

// Generate issues a new portable link for an artifact the caller can
// already see through normal authentication.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	user, ok := a.AuthGetUser(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	linkTarget := r.FormValue("linkTarget")
	target, err := url.Parse(linkTarget)
	if err != nil || !target.IsAbs() {
		http.Error(w, fmt.Sprintf("Malformed url: %s", linkTarget), http.StatusBadRequest)
		return
	}

	m := linkPattern.FindStringSubmatch(target.Path)
	if m == nil {
		http.Error(w, fmt.Sprintf("Malformed path: %s", target.Path), http.StatusBadRequest)
		return
	}
	buildIDFromPath, artifactPath := m[1], m[2]

	// The buildId param must agree with the id embedded in the URL path;
	// a mismatch means a crafted request.
	buildIDStr := r.FormValue("buildId")
	buildID := parseLong(buildIDStr, -1)
	if buildID < 0 || buildIDFromPath != buildIDStr {
		http.Error(w, fmt.Sprintf("Build ID was invalid (%s, %s)", buildIDStr, buildIDFromPath), http.StatusBadRequest)
		return
	}

	build, found := a.buildServer.FindBuild(buildID)
	if !found {
		http.Error(w, fmt.Sprintf("Build %d does not exist", buildID), http.StatusNotFound)
		return
	}

	if !a.buildServer.IsPermissionGranted(user.Username, build.ProjectID, buildserver.ViewProject) {
		http.Error(w, "Build's parent project doesn't exist or user has no access", http.StatusForbidden)
		return
	}

	var expiryMins int64
	switch expiry := r.FormValue("expiry"); expiry {
	case "none":
		expiryMins = -1
	case "custom":
		expiryMins = parseLong(r.FormValue("expiry_custom"), nonAdminMaxMinutes)
	default:
		expiryMins = parseLong(expiry, nonAdminMaxMinutes)
	}

	if !a.buildServer.IsPermissionGranted(user.Username, build.ProjectID, buildserver.EditProject) {
		if expiryMins <= 0 || expiryMins > nonAdminMaxMinutes {
			expiryMins = nonAdminMaxMinutes
		} else if expiryMins < nonAdminMinMinutes {
			expiryMins = nonAdminMinMinutes
		}
	}

	id := a.links.Create(user.Username, expiryMins, buildID, artifactPath)
	linksGenerated.Inc()

	log.Info().
		Str("user", user.Username).
		Str("guid", id).
		Int64("build", buildID).
		Str("artifact", artifactPath).
		Int64("expiry_minutes", expiryMins).
		Msg("Generated portable artifact link")

	finalLink := fmt.Sprintf("%s%s?guid=%s", a.config.ExternalURL, DownloadPath, id)
	fmt.Fprintf(w, "<a href='%s'>%s</a>", finalLink, finalLink)
}
