//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"school-tables/internal/config"
	"school-tables/internal/database"
	"school-tables/internal/handler"
	"school-tables/internal/middleware"
	"school-tables/internal/model"
	"school-tables/internal/repository"
	"school-tables/internal/resource"
	"school-tables/internal/router"
	"school-tables/internal/service"
)

const testPassword = "integration-pass"

type testEnv struct {
	server *httptest.Server
	users  *repository.UserRepository
}

// newTestEnv starts the full API against the database named by TEST_DATABASE_URL, with the
// demo data loaded.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Options{URL: dsn, MaxConns: 4, MinConns: 1, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	require.NoError(t, db.SeedDemoData(ctx))

	cfg := &config.Config{
		ServerPort:         "8080",
		ServerReadTimeout:  15 * time.Second,
		ServerWriteTimeout: 30 * time.Second,
		ServerIdleTimeout:  120 * time.Second,
		RequestTimeout:     10 * time.Second,
		JWTSecret:          "integration-secret-integration-secret",
		JWTAccessTTL:       15 * time.Minute,
		JWTRefreshTTL:      24 * time.Hour,
		CORSOrigins:        []string{"*"},
		RateLimitRPM:       1000,
		AuthRateLimitRPM:   1000,
	}

	users := repository.NewUserRepository(db.Pool)
	tokens := repository.NewTokenRepository(db.Pool)
	registry := resource.Default()

	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, users, tokens)
	require.NoError(t, err)
	listService := service.NewListService(registry, repository.NewListRepository(db.Pool))

	server := httptest.NewServer(router.New(
		cfg,
		registry,
		middleware.NewAuthMiddleware(authService),
		handler.NewHealthHandler(db),
		handler.NewAuthHandler(authService),
		handler.NewListHandler(listService),
	))
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: users}
}

// createUser stores a user with a unique name and the given permissions, and returns the name.
func (e *testEnv) createUser(t *testing.T, role string, permissions ...string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now().UTC()
	username := role + "-" + uuid.NewString()[:8]
	require.NoError(t, e.users.Create(context.Background(), model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Permissions:  permissions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	return username
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *model.Meta `json:"meta"`
}

func doRequest(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func doAuthRequest(t *testing.T, method string, url string, accessToken string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return doRequest(t, req)
}
