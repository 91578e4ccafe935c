package static

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/artifactlink/artifactlink/pkg/buildserver"
	"github.com/artifactlink/artifactlink/pkg/util"
)

// Server is a build server declared entirely in a TOML file: builds,
// users with their tokens, and per-project roles. Meant for small
// installs and local development; the file is read once at startup.
type Server struct {
	Filename string `mapstructure:"filename"`

	conf staticConfig
}

type staticConfig struct {
	Builds []buildserver.Build `toml:"builds"`
	Users  []staticUser        `toml:"users"`
	Roles  []staticRole        `toml:"roles"`
}

type staticUser struct {
	Username string `toml:"username"`
	Token    string `toml:"token"`
	Admin    bool   `toml:"admin"`
}

type staticRole struct {
	Username   string `toml:"username"`
	ProjectID  string `toml:"project_id"`
	Permission string `toml:"permission"`
}

func (s *Server) FindBuild(id int64) (buildserver.Build, bool) {
	for _, b := range s.conf.Builds {
		if b.ID == id {
			return b, true
		}
	}
	return buildserver.Build{}, false
}

func (s *Server) IsPermissionGranted(username string, projectID string, p buildserver.Permission) bool {
	for _, u := range s.conf.Users {
		if u.Username == username && u.Admin {
			return true
		}
	}

	for _, r := range s.conf.Roles {
		if r.Username != username || r.ProjectID != projectID {
			continue
		}
		// Project admins hold view implicitly.
		if r.Permission == string(p) || r.Permission == string(buildserver.EditProject) && p == buildserver.ViewProject {
			return true
		}
	}
	return false
}

func (s *Server) UserForToken(token string) (buildserver.User, bool) {
	if token == "" {
		return buildserver.User{}, false
	}
	for _, u := range s.conf.Users {
		if u.Token == token {
			return buildserver.User{Username: u.Username, Admin: u.Admin}, true
		}
	}
	return buildserver.User{}, false
}

// NewServer returns a Server populated from the configured TOML file.
func NewServer(c map[string]any) (*Server, error) {
	s := util.ConfigToStruct[Server](c)
	if s.Filename == "" {
		return nil, fmt.Errorf("static build server requires a filename")
	}
	if _, err := toml.DecodeFile(s.Filename, &s.conf); err != nil {
		return nil, fmt.Errorf("static build server: %w", err)
	}
	return s, nil
}
