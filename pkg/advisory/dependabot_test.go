package advisory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHubClient(t *testing.T, handler http.Handler) *github.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = u
	return client
}

const alertPage1 = `[{
  "number": 7,
  "state": "open",
  "html_url": "https://github.com/acme/web/security/dependabot/7",
  "dependency": {"package": {"ecosystem": "npm", "name": "lodash"}},
  "security_advisory": {
    "ghsa_id": "GHSA-35jh-r3h4-6jhm",
    "cve_id": "CVE-2021-23337",
    "summary": "Command Injection in lodash",
    "severity": "high",
    "identifiers": [
      {"type": "GHSA", "value": "GHSA-35jh-r3h4-6jhm"},
      {"type": "CVE", "value": "CVE-2021-23337"}
    ]
  },
  "security_vulnerability": {
    "package": {"ecosystem": "npm", "name": "lodash"},
    "vulnerable_version_range": ">= 4.0.0, < 4.17.21",
    "first_patched_version": {"identifier": "4.17.21"}
  }
}]`

const alertPage2 = `[{
  "number": 9,
  "html_url": "https://github.com/acme/web/security/dependabot/9",
  "dependency": {"package": {"ecosystem": "npm", "name": "lodash"}},
  "security_advisory": {"ghsa_id": "GHSA-xxxx", "identifiers": [{"type": "GHSA", "value": "GHSA-xxxx"}]},
  "security_vulnerability": {"vulnerable_version_range": "< 5.0.0"}
}]`

func TestDependabotSource_ListForPackage(t *testing.T) {
	var calls int
	client := newTestGitHubClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/repos/acme/web/dependabot/alerts", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "lodash", r.URL.Query().Get("package"))
		assert.Equal(t, "npm", r.URL.Query().Get("ecosystem"))

		if r.URL.Query().Get("after") == "" {
			next := fmt.Sprintf("<http://%s/repos/acme/web/dependabot/alerts?after=cursor1>; rel=\"next\"", r.Host)
			w.Header().Set("Link", next)
			fmt.Fprint(w, alertPage1)
			return
		}
		assert.Equal(t, "cursor1", r.URL.Query().Get("after"))
		fmt.Fprint(w, alertPage2)
	}))

	src := NewDependabotSource(client, "acme", "web", "")
	advs, err := src.ListForPackage(context.Background(), "npm", "lodash", "4.17.20")
	require.NoError(t, err)
	require.Len(t, advs, 2)
	assert.Equal(t, 2, calls)

	a := advs[0]
	assert.Equal(t, "lodash", a.Package)
	assert.Equal(t, "npm", a.Ecosystem)
	assert.Equal(t, []string{"CVE-2021-23337"}, a.CVEs)
	assert.Equal(t, 7, a.AlertID)
	assert.Equal(t, "https://github.com/acme/web/security/dependabot/7", a.AlertURL)
	assert.Equal(t, ">= 4.0.0, < 4.17.21", a.VulnerableRange)
	assert.Equal(t, "4.17.21", a.FirstPatched)
	assert.Equal(t, "GHSA-35jh-r3h4-6jhm", a.ID)
	assert.Equal(t, "high", a.Severity)

	b := advs[1]
	assert.Empty(t, b.CVEs)
	assert.Empty(t, b.FirstPatched)
	assert.Equal(t, 9, b.AlertID)
}

func TestDependabotSource_Error(t *testing.T) {
	client := newTestGitHubClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))

	_, err := NewDependabotSource(client, "acme", "web", "open").ListForPackage(context.Background(), "", "lodash", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list dependabot alerts for acme/web")
}
