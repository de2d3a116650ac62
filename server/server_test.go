package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"auralis/config"
	"auralis/core/auth"
	"auralis/core/chat"
	"auralis/model"
	"auralis/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTokens map[string]string // token -> user id

func (f fakeTokens) ParseToken(token string) (*auth.Identity, error) {
	if id, ok := f[token]; ok {
		return &auth.Identity{UserID: id}, nil
	}
	return nil, auth.ErrInvalidToken
}

type fakeAdmins map[string]string // user id -> email

func (f fakeAdmins) Resolve(_ context.Context, userID string) (string, bool, error) {
	email := f[userID]
	return email, email == "admin@auralis.dev", nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users []*model.User
}

func (f *fakeUsers) FindByClerkID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ClerkID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = primitive.NewObjectID()
	f.users = append(f.users, u)
	return nil
}

func (f *fakeUsers) ListExcept(_ context.Context, id string) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.User{}
	for _, u := range f.users {
		if u.ClerkID != id {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) Count(context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

type fakeMessages struct {
	mu  sync.Mutex
	all []*model.Message
}

func (f *fakeMessages) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now()
	f.all = append(f.all, m)
	return nil
}

func (f *fakeMessages) Conversation(_ context.Context, a, b string) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Message{}
	for _, m := range f.all {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnv struct {
	handler http.Handler
	api     *APIHandler
	users   *fakeUsers
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Environment:   "development",
		Version:       "1.0.0",
		DBDriver:      config.DriverMongo,
		ClientURLs:    []string{"http://localhost:5173"},
		MaxUploadSize: 10 << 20,
		TempDir:       t.TempDir(),
		UploadTimeout: time.Second,
	}
	users := &fakeUsers{users: []*model.User{
		{ClerkID: "user_admin", FullName: "Admin"},
		{ClerkID: "user_fan", FullName: "Fan"},
	}}
	store := &repository.Store{Users: users, Messages: &fakeMessages{}}

	bus := chat.NewMemoryBus()
	t.Cleanup(func() { bus.Close() })
	svc := chat.NewService(store, bus)

	opts := Options{
		Config: cfg,
		Store:  store,
		Tokens: fakeTokens{"admin-token": "user_admin", "fan-token": "user_fan"},
		Admins: fakeAdmins{"user_admin": "admin@auralis.dev", "user_fan": "fan@auralis.dev"},
		Chat:   svc,
		Hub:    chat.NewHub(chat.NewMemoryRegistry(), bus, svc),
	}
	if mutate != nil {
		mutate(&opts)
	}
	api := NewAPIHandler(opts)
	return &testEnv{handler: api.Routes(), api: api, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestIndexRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Auralis Backend API is running", resp.Message)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Route not found", resp.Message)

	_, err := time.Parse(timestampLayout, resp.Timestamp)
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.Timestamp, "Z"))
}

func TestAdminRoutesRequireAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/admin/check", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = env.do(t, http.MethodGet, "/api/admin/check", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminCheckComparesEmail(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/admin/check", "fan-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized - you must be an admin", resp.Message)

	rec, resp = env.do(t, http.MethodGet, "/api/admin/check", "admin-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"admin": true}, resp.Data)
}

func TestCreateSongWithoutFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodPost, "/api/admin/songs", "admin-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please upload all files", resp.Message)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "development", data["environment"])
}

func TestHealthUnhealthyWhenDatabaseDown(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Database = pingerFunc(func(context.Context) error { return errors.New("no reachable servers") })
	})
	rec, resp := env.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Database not connected", resp.Message)
	assert.Equal(t, "unhealthy", resp.Errors.(map[string]interface{})["status"])
}

func TestDetailedHealthReportsChecks(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Storage = pingerFunc(func(context.Context) error { return errors.New("bucket unreachable") })
	})
	rec, resp := env.do(t, http.MethodGet, "/api/health/detailed", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "degraded", data["status"])
	checks := data["checks"].(map[string]interface{})
	assert.Equal(t, "disabled", checks["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "disconnected", checks["storage"].(map[string]interface{})["status"])
}

func TestQuickSearchShortQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/api/songs/search/quick?q=a", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"suggestions": []interface{}{}}, resp.Data)
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/api/songs/search?q=%20%20", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Search query is required", resp.Message)
}

func TestInvalidSongID(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/api/songs/not-an-id", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid song ID format", resp.Message)

	rec, _ = env.do(t, http.MethodPost, "/api/songs/not-an-id/play", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthCallbackCreatesUserOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"id":"user_new","firstName":"Lucio","lastName":"Dalla","imageUrl":"http://img/x.jpg"}`

	rec, resp := env.do(t, http.MethodPost, "/api/auth/callback", "", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	rec, _ = env.do(t, http.MethodPost, "/api/auth/callback", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := env.users.FindByClerkID(context.Background(), "user_new")
	require.NoError(t, err)
	assert.Equal(t, "Lucio Dalla", u.FullName)
	assert.Len(t, env.users.users, 3)
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"id":"user_fan"}`

	for i := 0; i < 5; i++ {
		rec, _ := env.do(t, http.MethodPost, "/api/auth/callback", "", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "5", rec.Header().Get("RateLimit-Limit"))
	}

	rec, resp := env.do(t, http.MethodPost, "/api/auth/callback", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many authentication attempts, please try again later.", resp.Message)
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("RateLimit-Reset"))
}

// callbackFrom 模拟经由 remote 连接、带 X-Forwarded-For 的回调请求
func (e *testEnv) callbackFrom(remote, forwarded string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/callback", strings.NewReader(`{"id":"user_fan"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	env := newTestEnv(t, nil)

	limited := 0
	for i := 0; i < 20; i++ {
		rec := env.callbackFrom("198.51.100.9:40000", fmt.Sprintf("10.0.0.%d", i))
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 15, limited)
}

func TestAuthRateLimitUsesForwardedForBehindTrustedProxy(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Config.TrustedProxies = []string{"192.0.2.0/24"}
	})

	// 每个真实客户端各有预算
	for i := 0; i < 6; i++ {
		rec := env.callbackFrom("192.0.2.1:5000", fmt.Sprintf("203.0.113.%d", i))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// 客户端伪造的最左侧地址不影响计数
	for i := 0; i < 5; i++ {
		rec := env.callbackFrom("192.0.2.1:5000", fmt.Sprintf("10.9.9.%d, 203.0.113.200", i))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.callbackFrom("192.0.2.1:5000", "10.9.9.99, 203.0.113.200")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMeReportsAdminFlag(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/api/auth/me", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "user_admin", data["userId"])
	assert.Equal(t, true, data["isAdmin"])
	assert.Equal(t, "admin@auralis.dev", data["email"])
}

func TestUsersAndMessages(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/users", "fan-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)

	rec, _ = env.do(t, http.MethodPost, "/api/users/messages/user_admin", "fan-token", `{"content":"ciao"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/users/messages/user_fan", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	messages := resp.Data.([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "ciao", messages[0].(map[string]interface{})["content"])

	rec, resp = env.do(t, http.MethodPost, "/api/users/messages/user_admin", "fan-token", `{"content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message content is required", resp.Message)
}

func TestInternalErrorMessageByEnvironment(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	env.api.writeError(rec, req, errors.New("mongo: connection reset"))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "mongo: connection reset", resp.Message)

	env.api.cfg.Environment = "production"
	rec = httptest.NewRecorder()
	env.api.writeError(rec, req, errors.New("mongo: connection reset"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Message)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/songs/featured", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
