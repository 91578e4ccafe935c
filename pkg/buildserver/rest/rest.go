package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/artifactlink/artifactlink/pkg/buildserver"
	"github.com/artifactlink/artifactlink/pkg/util"
)

// Server talks to a host build server's REST API. Build lookups are
// cached briefly since the same build is fetched twice per download
// (resolve, then stream) and once per generate.
type Server struct {
	BaseURL      string `mapstructure:"base_url"`
	ServiceToken string `mapstructure:"service_token"`
	TimeoutSecs  int    `mapstructure:"timeout_seconds"`

	client *http.Client
	builds *cache.Cache
}

func (s *Server) get(path string, headers map[string]string, out any) (int, error) {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.ServiceToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("GET %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (s *Server) FindBuild(id int64) (buildserver.Build, bool) {
	key := strconv.FormatInt(id, 10)
	if cached, ok := s.builds.Get(key); ok {
		return cached.(buildserver.Build), true
	}

	var build buildserver.Build
	status, err := s.get("/api/builds/"+key, nil, &build)
	if err != nil {
		if status != http.StatusNotFound {
			log.Error().Err(err).Int64("build", id).Msg("Build lookup failed")
		}
		return buildserver.Build{}, false
	}

	s.builds.SetDefault(key, build)
	return build, true
}

func (s *Server) IsPermissionGranted(username string, projectID string, p buildserver.Permission) bool {
	var result struct {
		Granted bool `json:"granted"`
	}
	path := fmt.Sprintf("/api/projects/%s/permissions?username=%s&permission=%s",
		url.PathEscape(projectID), url.QueryEscape(username), url.QueryEscape(string(p)))
	if _, err := s.get(path, nil, &result); err != nil {
		log.Error().Err(err).Str("user", username).Str("project", projectID).Msg("Permission check failed")
		return false
	}
	return result.Granted
}

func (s *Server) UserForToken(token string) (buildserver.User, bool) {
	if token == "" {
		return buildserver.User{}, false
	}

	var user buildserver.User
	status, err := s.get("/api/whoami", map[string]string{"X-Auth-Token": token}, &user)
	if err != nil {
		if status != http.StatusNotFound && status != http.StatusUnauthorized {
			log.Error().Err(err).Msg("Token resolution failed")
		}
		return buildserver.User{}, false
	}
	return user, true
}

// NewServer returns a new initialized Server
func NewServer(c map[string]any) (*Server, error) {
	s := util.ConfigToStruct[Server](c)
	if s.BaseURL == "" {
		return nil, fmt.Errorf("rest build server requires a base_url")
	}

	timeout := 10 * time.Second
	if s.TimeoutSecs > 0 {
		timeout = time.Duration(s.TimeoutSecs) * time.Second
	}
	s.client = &http.Client{Timeout: timeout}
	s.builds = cache.New(30*time.Second, time.Minute)

	return s, nil
}
