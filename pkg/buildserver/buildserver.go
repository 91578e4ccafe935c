package buildserver

// Permission is a project-scoped right on the host build server.
type Permission string

const (
	// ViewProject is required to generate a link for a build.
	ViewProject Permission = "view"

	// EditProject marks a project admin: unrestricted link expiry, plus
	// listing and revoking links under the project.
	EditProject Permission = "edit"
)

// Build is the slice of host build metadata this service needs.
type Build struct {
	ID          int64  `json:"id"`
	BuildTypeID string `json:"build_type_id"`
	ProjectID   string `json:"project_id"`
}

// User is an authenticated principal on the host build server.
type User struct {
	Username string `json:"username"`

	// Admin is a server administrator: holds every permission on every
	// project.
	Admin bool `json:"admin"`
}

type BuildLookup interface {
	FindBuild(id int64) (Build, bool)
}

type PermissionChecker interface {
	IsPermissionGranted(username string, projectID string, p Permission) bool
}

type UserLookup interface {
	UserForToken(token string) (User, bool)
}

// BuildServer is everything the link service delegates to the host:
// build metadata, authorization, and request identity.
type BuildServer interface {
	BuildLookup
	PermissionChecker
	UserLookup
}
