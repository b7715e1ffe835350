package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matapang/platform/services/gateway/internal/config"
)

func upstream(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, forms, identity string) *httptest.Server {
	t.Helper()
	cfg := config.Config{Port: "0", FormServiceURL: forms, IdentityServiceURL: identity, RequestTimeout: time.Second}
	srv := httptest.NewServer(Router(cfg, nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchByResource(t *testing.T) {
	forms := upstream(t, map[string]string{
		"GET /forms/f1":     `{"data": {"id": "f1"}}`,
		"POST /submissions": `{"data": {"id": "s1"}}`,
	})
	identity := upstream(t, map[string]string{"GET /users": `{"data": []}`})
	gw := newGateway(t, forms.URL, identity.URL)

	resp, err := http.Get(gw.URL + "/api/forms/f1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data": {"id": "f1"}}`, string(body))

	resp, err = http.Post(gw.URL+"/api/submissions", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(gw.URL + "/api/users")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(gw.URL + "/api/tickets")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOverview(t *testing.T) {
	forms := upstream(t, map[string]string{
		"GET /forms":       `{"data": [{"status": "PUBLISHED"}, {"status": "DRAFT"}, {"status": "PUBLISHED"}]}`,
		"GET /submissions": `{"data": [{"status": "APPROVED"}]}`,
	})
	identity := upstream(t, map[string]string{"GET /users": `{"data": [{"id": "u1"}, {"id": "u2"}]}`})
	gw := newGateway(t, forms.URL, identity.URL)

	resp, err := http.Get(gw.URL + "/api/overview")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Forms struct {
				Total    int            `json:"total"`
				ByStatus map[string]int `json:"byStatus"`
			} `json:"forms"`
			Submissions struct {
				Total    int            `json:"total"`
				ByStatus map[string]int `json:"byStatus"`
			} `json:"submissions"`
			Users struct {
				Total int `json:"total"`
			} `json:"users"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body.Data.Forms.Total)
	assert.Equal(t, 2, body.Data.Forms.ByStatus["PUBLISHED"])
	assert.Equal(t, 1, body.Data.Submissions.ByStatus["APPROVED"])
	assert.Equal(t, 2, body.Data.Users.Total)
}

func TestOverviewUpstreamFailure(t *testing.T) {
	forms := upstream(t, map[string]string{"GET /forms": `{"data": []}`})
	identity := upstream(t, map[string]string{})
	gw := newGateway(t, forms.URL, identity.URL)

	resp, err := http.Get(gw.URL + "/api/overview")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	gw := newGateway(t, "http://forms", "http://identity")

	resp, err := http.Get(gw.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(gw.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDPropagation(t *testing.T) {
	seen := make(chan string, 4)
	forms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL.Path + " " + r.Header.Get(RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data": []}`)
	}))
	t.Cleanup(forms.Close)
	gw := newGateway(t, forms.URL, forms.URL)

	req, err := http.NewRequest(http.MethodGet, gw.URL+"/api/forms/", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "trace-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "trace-1", resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "/forms trace-1", <-seen)

	resp, err = http.Get(gw.URL + "/api/overview")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assigned := resp.Header.Get(RequestIDHeader)
	require.NotEmpty(t, assigned)
	for i := 0; i < 3; i++ {
		line := <-seen
		assert.True(t, strings.HasSuffix(line, " "+assigned), line)
	}
}
