package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/govjob-alerts/internal/admin"
	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/db"
	"github.com/jonathan/govjob-alerts/internal/types"
)

const (
	testAdminEmail    = "admin@govjobs.example"
	testAdminPassword = "correct-horse-battery"
)

// memoryAccounts implements AdminAccounts in memory.
type memoryAccounts struct {
	mu     sync.Mutex
	admins map[string]*db.Admin
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{admins: make(map[string]*db.Admin)}
}

func (m *memoryAccounts) CreateAdmin(_ context.Context, email, passwordHash string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &db.Admin{ID: uuid.New(), Email: strings.ToLower(email), PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.admins[a.Email] = a
	return a.ID, nil
}

func (m *memoryAccounts) GetAdminByEmail(_ context.Context, email string) (*db.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) AdminEmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.admins[strings.ToLower(email)]
	return ok, nil
}

// fakeRedis implements redisCmdable in memory.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	gets int
	ttl  time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []types.TestNotificationRequest
	err  error
}

func (f *fakeNotifier) SendTest(_ context.Context, req types.TestNotificationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, req)
	return "projects/demo/messages/1", nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []types.Job
}

func (p *recordingPublisher) PublishJobCreated(_ context.Context, job types.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

type testServer struct {
	*Server
	handler   http.Handler
	store     *admin.MemoryStore
	redis     *fakeRedis
	notifier  *fakeNotifier
	publisher *recordingPublisher
	token     string
}

type testOption func(*Deps)

func newTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	store := admin.NewMemoryStore()
	pub := &recordingPublisher{}
	rdb := newFakeRedis()
	notifier := &fakeNotifier{}

	passwords := &config.PasswordConfig{BcryptCost: bcrypt.MinCost}
	auth := NewAuthService(newMemoryAccounts(), passwords)
	_, err := auth.CreateAdmin(context.Background(), &types.CreateAdminRequest{Email: testAdminEmail, Password: testAdminPassword})
	require.NoError(t, err)

	deps := Deps{
		Admin:    admin.New(store, pub, nil),
		Auth:     auth,
		Tokens:   setupTestJWTService(t, 1),
		Notifier: notifier,
		Cache:    newCatalogCache(rdb, time.Minute, nil),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	s := New(Config{Port: 0}, deps)
	t.Cleanup(s.rateLimiter.Stop)
	ts := &testServer{
		Server:    s,
		handler:   s.Handler(),
		store:     store,
		redis:     rdb,
		notifier:  notifier,
		publisher: pub,
	}
	ts.token = ts.login(t)
	return ts
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/auth/login", "", types.LoginRequest{Email: testAdminEmail, Password: testAdminPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

// do sends body as JSON. A non-empty token is sent as a bearer token.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) asAdmin(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, method, path, ts.token, body)
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func categoryForm(id string) admin.CategoryForm {
	return admin.CategoryForm{ID: id, Name: "Staff Selection", Icon: "📋", Description: "SSC exams", Color: "#3F51B5"}
}

func jobForm(category string) admin.JobForm {
	return admin.JobForm{
		Title:                "Combined Graduate Level",
		Organization:         "SSC",
		Category:             category,
		Description:          "Group B and C posts",
		Qualification:        "Graduate",
		AgeLimit:             "18-32",
		TotalVacancies:       7500,
		JobType:              types.JobTypePermanent,
		ApplicationStartDate: "2025-06-01",
		ApplicationEndDate:   "2025-07-01",
		ApplicationFee:       "100",
		Location:             "All India",
		ApplyURL:             "https://ssc.example.gov/apply",
		Tags:                 "ssc, cgl",
	}
}
