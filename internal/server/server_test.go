package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/govjob-alerts/internal/admin"
	"github.com/jonathan/govjob-alerts/internal/server/ratelimit"
	"github.com/jonathan/govjob-alerts/internal/types"
)

type downPinger struct{}

func (downPinger) Ping(_ context.Context) error { return errors.New("connection refused") }

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	down := newTestServer(t, func(d *Deps) { d.Health = downPinger{} })
	w = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodOptions, "/admin/jobs", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"wrong password", types.LoginRequest{Email: testAdminEmail, Password: "nope-nope"}, http.StatusUnauthorized},
		{"unknown email", types.LoginRequest{Email: "who@govjobs.example", Password: testAdminPassword}, http.StatusUnauthorized},
		{"missing password", types.LoginRequest{Email: testAdminEmail}, http.StatusBadRequest},
		{"bad email", types.LoginRequest{Email: "not-an-email", Password: "x"}, http.StatusBadRequest},
		{"bad json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/auth/login", "", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := ts.do(t, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: strings.ToUpper(testAdminEmail), Password: testAdminPassword})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[types.LoginResponse](t, w)
	assert.Equal(t, testAdminEmail, resp.Admin.Email)
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/admin/categories"},
		{http.MethodPost, "/admin/categories"},
		{http.MethodPut, "/admin/categories/ssc"},
		{http.MethodDelete, "/admin/categories/ssc"},
		{http.MethodGet, "/admin/jobs"},
		{http.MethodPost, "/admin/jobs"},
		{http.MethodDelete, "/admin/jobs/1"},
		{http.MethodPost, "/admin/notifications/test"},
	} {
		w := ts.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.method+" "+route.path)

		w = ts.do(t, route.method, route.path, "forged.token.value", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.method+" "+route.path)
	}
}

func TestCategoryCRUD(t *testing.T) {
	ts := newTestServer(t)

	w := ts.asAdmin(t, http.MethodPost, "/admin/categories", categoryForm("ssc"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.asAdmin(t, http.MethodPost, "/admin/categories", categoryForm("ssc"))
	assert.Equal(t, http.StatusConflict, w.Code)

	bad := categoryForm("Bad ID")
	bad.Color = "blue"
	w = ts.asAdmin(t, http.MethodPost, "/admin/categories", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	problems := decodeJSON[struct {
		Problems []string `json:"problems"`
	}](t, w).Problems
	assert.Len(t, problems, 2)

	name := "  SSC  "
	w = ts.asAdmin(t, http.MethodPut, "/admin/categories/ssc", admin.CategoryUpdate{Name: &name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeJSON[types.JobCategory](t, w)
	assert.Equal(t, "ssc", updated.ID)
	assert.Equal(t, "SSC", updated.Name)
	assert.Equal(t, "#3F51B5", updated.Color)

	w = ts.asAdmin(t, http.MethodGet, "/admin/categories/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.asAdmin(t, http.MethodDelete, "/admin/categories/ssc", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.asAdmin(t, http.MethodDelete, "/admin/categories/ssc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCategoryInUse(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.asAdmin(t, http.MethodPost, "/admin/categories", categoryForm("ssc")).Code)
	require.Equal(t, http.StatusCreated, ts.asAdmin(t, http.MethodPost, "/admin/jobs", jobForm("ssc")).Code)

	w := ts.asAdmin(t, http.MethodDelete, "/admin/categories/ssc", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "cannot delete category 'ssc' because it has 1 job(s) assigned to it")

	w = ts.asAdmin(t, http.MethodGet, "/admin/categories", nil)
	assert.Contains(t, w.Body.String(), `"id":"ssc"`)
}

func TestJobCRUD(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.asAdmin(t, http.MethodPost, "/admin/categories", categoryForm("ssc")).Code)

	w := ts.asAdmin(t, http.MethodPost, "/admin/jobs", jobForm("ssc"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	job := decodeJSON[types.Job](t, w)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, []string{"ssc", "cgl"}, job.Tags)
	assert.True(t, job.IsNew)
	require.Len(t, ts.publisher.jobs, 1)
	assert.Equal(t, job.ID, ts.publisher.jobs[0].ID)

	w = ts.asAdmin(t, http.MethodPost, "/admin/jobs", jobForm("railway"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Category 'railway' does not exist")

	form := jobForm("ssc")
	form.Title = "CGL 2025"
	w = ts.asAdmin(t, http.MethodPut, "/admin/jobs/"+job.ID, form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CGL 2025", decodeJSON[types.Job](t, w).Title)

	w = ts.asAdmin(t, http.MethodGet, "/admin/jobs", nil)
	list := decodeJSON[jobsResponse](t, w)
	assert.Equal(t, 1, list.Count)

	assert.Equal(t, http.StatusNoContent, ts.asAdmin(t, http.MethodDelete, "/admin/jobs/"+job.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.asAdmin(t, http.MethodGet, "/admin/jobs/"+job.ID, nil).Code)
}

func TestPublicCatalog_CachedAndInvalidated(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.asAdmin(t, http.MethodPost, "/admin/categories", categoryForm("ssc")).Code)

	w := ts.do(t, http.MethodGet, "/api/jobs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeJSON[jobsResponse](t, w).Count)
	assert.True(t, ts.redis.has(cacheKeyJobs))
	assert.Equal(t, time.Minute, ts.redis.ttl)

	created := decodeJSON[types.Job](t, ts.asAdmin(t, http.MethodPost, "/admin/jobs", jobForm("ssc")))
	assert.False(t, ts.redis.has(cacheKeyJobs))

	w = ts.do(t, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, 1, decodeJSON[jobsResponse](t, w).Count)

	w = ts.do(t, http.MethodGet, "/api/jobs?category=defence", "", nil)
	assert.Equal(t, 0, decodeJSON[jobsResponse](t, w).Count)

	w = ts.do(t, http.MethodGet, "/api/categories", "", nil)
	cats := decodeJSON[categoriesResponse](t, w)
	require.Equal(t, 1, cats.Count)
	assert.Equal(t, 1, cats.Categories[0].TotalJobs)

	w = ts.do(t, http.MethodGet, "/api/jobs/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ts.redis.has(cacheKeyJobPrefix+created.ID))

	require.Equal(t, http.StatusNoContent, ts.asAdmin(t, http.MethodDelete, "/admin/jobs/"+created.ID, nil).Code)
	assert.False(t, ts.redis.has(cacheKeyJobPrefix+created.ID))
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/jobs/"+created.ID, "", nil).Code)
}

func TestPublicCatalog_NoCache(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) { d.Cache = nil })
	w := ts.do(t, http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, ts.redis.gets)
}

func TestTestNotification(t *testing.T) {
	ts := newTestServer(t)

	w := ts.asAdmin(t, http.MethodPost, "/admin/notifications/test", types.TestNotificationRequest{Topic: "all-jobs", Title: "Hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.notifier.sent)

	req := types.TestNotificationRequest{Topic: "all-jobs", Title: "Hi", Body: "Test"}
	w = ts.asAdmin(t, http.MethodPost, "/admin/notifications/test", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []types.TestNotificationRequest{req}, ts.notifier.sent)

	ts.notifier.err = errors.New("fcm down")
	w = ts.asAdmin(t, http.MethodPost, "/admin/notifications/test", req)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	off := newTestServer(t, func(d *Deps) { d.Notifier = nil })
	w = off.asAdmin(t, http.MethodPost, "/admin/notifications/test", req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRateLimitedLogin(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Rules:         []ratelimit.Rule{{Path: "/auth/login", Method: http.MethodPost, Limit: 2, Window: time.Hour}},
	})
	// newTestServer spends one login on the token.
	ts := newTestServer(t, func(d *Deps) { d.Limiter = limiter })

	w := ts.do(t, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: testAdminEmail, Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	w = ts.do(t, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: testAdminEmail, Password: testAdminPassword})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/categories", "", nil)

	w := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `govjobs_http_requests_total{method="GET",route="GET /api/categories",status="200"}`)
}
