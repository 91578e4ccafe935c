package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifactlink/artifactlink/pkg/artifacts/memory"
	"github.com/artifactlink/artifactlink/pkg/buildserver"
	memoryserver "github.com/artifactlink/artifactlink/pkg/buildserver/memory"
	"github.com/artifactlink/artifactlink/pkg/config"
	"github.com/artifactlink/artifactlink/pkg/links"
)

const (
	adminToken   = "admin-token"
	editorToken  = "editor-token"
	viewerToken  = "viewer-token"
	outsideToken = "outside-token"
)

type fixture struct {
	mux         *chi.Mux
	store       *links.Store
	buildServer *memoryserver.Server
	artifacts   *memory.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	buildServer := memoryserver.NewServer()
	buildServer.AddBuild(buildserver.Build{ID: 42, BuildTypeID: "Main_Build", ProjectID: "Main"})
	buildServer.AddUser(adminToken, buildserver.User{Username: "root", Admin: true})
	buildServer.AddUser(editorToken, buildserver.User{Username: "marte"})
	buildServer.AddUser(viewerToken, buildserver.User{Username: "nikki"})
	buildServer.AddUser(outsideToken, buildserver.User{Username: "sam"})
	buildServer.Grant("marte", "Main", buildserver.EditProject)
	buildServer.Grant("nikki", "Main", buildserver.ViewProject)

	artifactStore := memory.NewStorage()
	artifactStore.Put(42, "dist/app.zip", []byte("zip bytes"))

	store := links.NewStore(t.TempDir())

	conf := config.API{Port: 8111, ExternalURL: "https://build.example.com"}
	a := NewAPI(conf, store, buildServer, artifactStore)

	return &fixture{
		mux:         CreateMux(a),
		store:       store,
		buildServer: buildServer,
		artifacts:   artifactStore,
	}
}

func (f *fixture) do(t *testing.T, method, target, token string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func generateForm(linkTarget, buildID, expiry string) url.Values {
	return url.Values{
		"linkTarget": {linkTarget},
		"buildId":    {buildID},
		"expiry":     {expiry},
	}
}

var guidPattern = regexp.MustCompile(`guid=([0-9a-f-]+)`)

func (f *fixture) generate(t *testing.T, token string, form url.Values) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, CreatePath, token, form)
	require.Equal(t, http.StatusOK, rec.Code, "generate failed: %s", rec.Body.String())

	m := guidPattern.FindStringSubmatch(rec.Body.String())
	require.NotNil(t, m, "no guid in response: %s", rec.Body.String())
	return m[1]
}

func TestGenerateAndDownload(t *testing.T) {
	f := newFixture(t)

	guid := f.generate(t, viewerToken, generateForm("https://build.example.com/repo/42:id/dist/app.zip", "42", "10"))

	rec := f.do(t, http.MethodGet, DownloadPath+"?guid="+guid, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zip bytes", rec.Body.String())
	assert.Equal(t, "attachment; filename=app.zip", rec.Header().Get("Content-Disposition"))
}

func TestGenerateRejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		token  string
		form   url.Values
		status int
	}{
		{
			name:   "anonymous caller",
			token:  "",
			form:   generateForm("https://build.example.com/repo/42:id/dist/app.zip", "42", "10"),
			status: http.StatusUnauthorized,
		},
		{
			name:   "unknown token",
			token:  "bogus",
			form:   generateForm("https://build.example.com/repo/42:id/dist/app.zip", "42", "10"),
			status: http.StatusUnauthorized,
		},
		{
			name:   "malformed url",
			token:  viewerToken,
			form:   generateForm("not-a-url", "42", "10"),
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed path",
			token:  viewerToken,
			form:   generateForm("https://build.example.com/repo/42/dist/app.zip", "42", "10"),
			status: http.StatusBadRequest,
		},
		{
			name:   "build id mismatch",
			token:  viewerToken,
			form:   generateForm("https://build.example.com/repo/43:id/dist/app.zip", "42", "10"),
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown build",
			token:  viewerToken,
			form:   generateForm("https://build.example.com/repo/99:id/dist/app.zip", "99", "10"),
			status: http.StatusNotFound,
		},
		{
			name:   "no view permission",
			token:  outsideToken,
			form:   generateForm("https://build.example.com/repo/42:id/dist/app.zip", "42", "10"),
			status: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, CreatePath, tc.token, tc.form)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	// None of the rejected requests may have created a link.
	assert.Empty(t, f.store.List())
}

func expiryMinutes(t *testing.T, f *fixture, guid string) int64 {
	t.Helper()

	link, ok := f.store.Resolve(guid)
	require.True(t, ok)
	if link.ExpiresAt == nil {
		return -1
	}
	return int64(link.ExpiresAt.Sub(link.CreatedAt) / time.Minute)
}

func TestGenerateExpiryClamping(t *testing.T) {
	f := newFixture(t)

	target := "https://build.example.com/repo/42:id/dist/app.zip"

	tests := []struct {
		name    string
		token   string
		expiry  string
		custom  string
		minutes int64
	}{
		{"non-admin over max", viewerToken, "1000", "", 15},
		{"non-admin under min", viewerToken, "1", "", 5},
		{"non-admin none clamps to max", viewerToken, "none", "", 15},
		{"non-admin unparsable defaults", viewerToken, "soon", "", 15},
		{"non-admin custom clamped", viewerToken, "custom", "45", 15},
		{"non-admin in range untouched", viewerToken, "10", "", 10},
		{"project admin custom honoured", editorToken, "custom", "120", 120},
		{"project admin none honoured", editorToken, "none", "", -1},
		{"server admin none honoured", adminToken, "none", "", -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			form := generateForm(target, "42", tc.expiry)
			if tc.custom != "" {
				form.Set("expiry_custom", tc.custom)
			}
			guid := f.generate(t, tc.token, form)
			assert.Equal(t, tc.minutes, expiryMinutes(t, f, guid))
		})
	}
}

func TestDownloadUnknownGuid(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, DownloadPath+"?guid=b2ee74ab-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.store.List())
}

func TestDownloadBuildGone(t *testing.T) {
	f := newFixture(t)

	guid := f.generate(t, viewerToken, generateForm("https://build.example.com/repo/42:id/dist/app.zip", "42", "10"))
	f.buildServer.RemoveBuild(42)

	rec := f.do(t, http.MethodGet, DownloadPath+"?guid="+guid, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadArtifactGone(t *testing.T) {
	f := newFixture(t)

	// Generate does not verify the artifact exists, only the build.
	guid := f.generate(t, viewerToken, generateForm("https://build.example.com/repo/42:id/dist/ghost.zip", "42", "10"))

	rec := f.do(t, http.MethodGet, DownloadPath+"?guid="+guid, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)

	target := "https://build.example.com/repo/42:id/dist/app.zip"

	t.Run("project admin can revoke", func(t *testing.T) {
		guid := f.generate(t, viewerToken, generateForm(target, "42", "10"))

		rec := f.do(t, http.MethodPost, RevokePath+"?guid="+guid, editorToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, DownloadPath+"?guid="+guid, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("server admin can revoke", func(t *testing.T) {
		guid := f.generate(t, viewerToken, generateForm(target, "42", "10"))

		rec := f.do(t, http.MethodPost, RevokePath+"?guid="+guid, adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, f.store.List(), guid)
	})

	t.Run("viewer cannot revoke", func(t *testing.T) {
		guid := f.generate(t, viewerToken, generateForm(target, "42", "10"))

		rec := f.do(t, http.MethodPost, RevokePath+"?guid="+guid, viewerToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, f.store.List(), guid)
	})

	t.Run("unknown guid reports ok", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, RevokePath+"?guid=b2ee74ab-0000-0000-0000-000000000000", adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestListLinksScoping(t *testing.T) {
	f := newFixture(t)

	f.buildServer.AddBuild(buildserver.Build{ID: 7, BuildTypeID: "Other_Build", ProjectID: "Other"})

	mainLink := f.generate(t, viewerToken, generateForm("https://build.example.com/repo/42:id/dist/app.zip", "42", "10"))
	otherLink := f.generate(t, adminToken, generateForm("https://build.example.com/repo/7:id/logs/build.log", "7", "10"))

	t.Run("server admin sees everything", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, CreatePath, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), mainLink)
		assert.Contains(t, rec.Body.String(), otherLink)
	})

	t.Run("project admin sees own project only", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, CreatePath, editorToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), mainLink)
		assert.NotContains(t, rec.Body.String(), otherLink)
	})

	t.Run("viewer sees nothing", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, CreatePath, viewerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), mainLink)
		assert.NotContains(t, rec.Body.String(), otherLink)
	})
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
