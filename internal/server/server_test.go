package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/db/memdb"
	"github.com/jonathan/interview-manager/internal/events"
	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/jonathan/interview-manager/internal/notify"
	"github.com/jonathan/interview-manager/internal/server/ratelimit"
	"github.com/jonathan/interview-manager/internal/storage"
	"github.com/jonathan/interview-manager/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://app.test"

// testEnv is a server wired to in-memory collaborators
type testEnv struct {
	srv     *Server
	store   *memdb.Store
	objects *storage.MemoryStore
	events  *events.Dummy
	sender  *notify.SimulatedSender
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           8080,
		BaseURL:        testBaseURL,
		AllowedOrigins: testBaseURL,
		ReadState:      config.ReadStateConfig{Cap: 50},
		Invite:         config.InviteConfig{Concurrency: 2},
		Video:          config.VideoConfig{MaxSizeMB: 1},
	}
}

func newTestEnv(t *testing.T, opts ...func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   memdb.New(),
		objects: storage.NewMemoryStore("https://cdn.test/videos"),
		events:  &events.Dummy{},
		sender:  notify.NewSimulatedSender(testBaseURL),
	}
	o := Options{
		Config:    testConfig(),
		Store:     env.store,
		Objects:   env.objects,
		Events:    env.events,
		Sender:    env.sender,
		JWT:       &config.JWTConfig{Secret: testJWTSecret, Issuer: "interview-manager-test", ExpirationHours: 1, MagicLinkMinutes: 15},
		Password:  testPasswordConfig(),
		RateLimit: &ratelimit.Config{Enabled: false},
	}
	for _, opt := range opts {
		opt(&o)
	}

	srv, err := New(o)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	env.srv = srv
	return env
}

// do sends a JSON request through the full middleware chain
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			r = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// admin creates an admin account and returns its session token
func (e *testEnv) admin(t *testing.T) (string, *types.User) {
	t.Helper()
	u, err := e.srv.userService.CreateAdmin(context.Background(), &types.RegisterRequest{
		Email:    "admin-" + uuid.NewString()[:8] + "@example.com",
		Password: "admin-password",
	})
	require.NoError(t, err)
	token, err := e.srv.jwtService.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return token, u
}

// candidate registers a candidate and returns its session token
func (e *testEnv) candidate(t *testing.T, email, first, last string) (string, *types.User) {
	t.Helper()
	u, err := e.srv.userService.Register(context.Background(), &types.RegisterRequest{
		Email:     email,
		Password:  "candidate-password",
		FirstName: first,
		LastName:  last,
	})
	require.NoError(t, err)
	token, err := e.srv.jwtService.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return token, u
}

type failingPingStore struct {
	*memdb.Store
}

func (failingPingStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{Store: memdb.New(), JWT: &config.JWTConfig{Secret: testJWTSecret}, Password: testPasswordConfig()})
	assert.Error(t, err, "config is required")

	_, err = New(Options{Config: testConfig(), Store: memdb.New()})
	assert.Error(t, err, "JWT and password config are required")
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestHealthEndpoint_StoreDown(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Store = failingPingStore{Store: memdb.New()}
	})

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode[map[string]string](t, w)["status"])
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	generated := w.Header().Get(logging.RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err, "a request id is generated when none is sent")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(logging.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(logging.RequestIDHeader))
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	t.Run("allowed origin is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", testBaseURL)
		w := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(w, req)
		assert.Equal(t, testBaseURL, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("other origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://evil.test")
		w := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/interviews", nil)
		req.Header.Set("Origin", testBaseURL)
		w := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})

	t.Run("wildcard", func(t *testing.T) {
		env := newTestEnv(t, func(o *Options) { o.Config.AllowedOrigins = "*" })
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://anywhere.test")
		w := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(w, req)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/auth/login", Method: http.MethodPost, Limit: 1, Window: time.Minute, Burst: 1},
			},
		}
	})
	body := types.LoginRequest{Email: "nobody@example.com", Password: "whatever"}

	w := env.do(t, http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = env.do(t, http.MethodPost, "/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, w)["error"])

	// health stays reachable
	w = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleGating(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.admin(t)
	candidateToken, _ := env.candidate(t, "cand@example.com", "Cara", "Candidate")

	adminRoutes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/interviews"},
		{http.MethodGet, "/candidates"},
		{http.MethodGet, "/assignments"},
		{http.MethodGet, "/analytics/dashboard"},
		{http.MethodGet, "/notifications"},
		{http.MethodPost, "/notifications/read-all"},
	}

	for _, rt := range adminRoutes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, env.do(t, rt.method, rt.path, "", nil).Code)
			assert.Equal(t, http.StatusUnauthorized, env.do(t, rt.method, rt.path, "garbage", nil).Code)
			assert.Equal(t, http.StatusForbidden, env.do(t, rt.method, rt.path, candidateToken, nil).Code)

			w := env.do(t, rt.method, rt.path, adminToken, nil)
			assert.Less(t, w.Code, 300, "admin gets through: %s", w.Body.String())
		})
	}

	t.Run("magic link tokens are not sessions", func(t *testing.T) {
		_, u := env.admin(t)
		link, err := env.srv.jwtService.GenerateMagicLinkToken(u.ID, u.Role)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/interviews", link, nil).Code)
	})
}

func TestMyAssignments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	candidateToken, cand := env.candidate(t, "cand@example.com", "Cara", "Candidate")
	_, other := env.candidate(t, "other@example.com", "", "")

	iv, _, err := env.store.CreateInterview(ctx, &db.Interview{Name: "Backend Dev"}, []db.QuestionInput{{QuestionText: "Why?", Type: db.QuestionTypeText}})
	require.NoError(t, err)
	_, err = env.store.CreateAssignments(ctx, iv.ID, []uuid.UUID{cand.ID, other.ID})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/me/assignments", "", nil).Code)

	w := env.do(t, http.MethodGet, "/me/assignments", candidateToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]types.Assignment](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, cand.ID, list[0].UserID)
	assert.Equal(t, "Backend Dev", list[0].InterviewName)
	assert.Equal(t, testBaseURL+"/interview/"+list[0].ID.String(), list[0].InvitationURL)
}

func TestExtractClientID(t *testing.T) {
	s := &Server{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	assert.Equal(t, "10.1.2.3", s.extractClientID(req))

	req.RemoteAddr = "not-a-hostport"
	assert.Equal(t, "not-a-hostport", s.extractClientID(req))
}
