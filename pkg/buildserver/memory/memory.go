package memory

import (
	"sync"

	"github.com/artifactlink/artifactlink/pkg/buildserver"
)

type grant struct {
	username   string
	projectID  string
	permission buildserver.Permission
}

// Server is an in-memory build server for tests.
type Server struct {
	mu     sync.Mutex
	builds map[int64]buildserver.Build
	users  map[string]buildserver.User // keyed by token
	grants []grant
}

func (s *Server) AddBuild(b buildserver.Build) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[b.ID] = b
}

func (s *Server) RemoveBuild(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.builds, id)
}

func (s *Server) AddUser(token string, u buildserver.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[token] = u
}

func (s *Server) Grant(username, projectID string, p buildserver.Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, grant{username, projectID, p})
}

func (s *Server) FindBuild(id int64) (buildserver.Build, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.builds[id]
	return b, ok
}

func (s *Server) IsPermissionGranted(username string, projectID string, p buildserver.Permission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username && u.Admin {
			return true
		}
	}
	for _, g := range s.grants {
		if g.username != username || g.projectID != projectID {
			continue
		}
		if g.permission == p || g.permission == buildserver.EditProject && p == buildserver.ViewProject {
			return true
		}
	}
	return false
}

func (s *Server) UserForToken(token string) (buildserver.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[token]
	return u, ok
}

// NewServer returns a new initialized Server
func NewServer() *Server {
	return &Server{
		builds: map[int64]buildserver.Build{},
		users:  map[string]buildserver.User{},
	}
}
