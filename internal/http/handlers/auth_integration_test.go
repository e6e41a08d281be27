package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/portfolio-be/internal/accounts"
	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/middleware"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/sessions"
	"github.com/hongminglow/portfolio-be/internal/storage/postgres"
)

// TestAuthIntegration exercises register/login/logout against a live database.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := mustGetEnv(t, "DATABASE_URL")

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	log := logrus.New()
	tokens := auth.NewTokenManager(mustGetEnv(t, "JWT_SECRET"), "portfolio-integration")
	hasher := auth.NewPasswordHasher(4)
	manager := sessions.NewManager(store, store, hasher, tokens, time.Hour, sessions.WithLogger(log))
	accts := accounts.NewService(store, manager, hasher, log)

	adminName := fmt.Sprintf("itadmin_%d", time.Now().UnixNano())
	adminPass := fmt.Sprintf("Pass!%d", time.Now().UnixNano())
	if _, err := accts.Register(ctx, adminName, adminPass, string(models.RoleAdmin)); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	defer func() { _ = accts.Delete(ctx, adminName) }()

	guards := Guards{
		Authenticate: middleware.Authenticate(tokens, nil),
		Require: func(perms ...models.Permission) Middleware {
			return middleware.RequirePermissions(manager, log, nil, perms...)
		},
	}
	r := chi.NewRouter()
	NewAuthHandler(manager, accts, log).Register(r, guards)

	ts := httptest.NewServer(r)
	defer ts.Close()

	adminToken := requestLogin(t, ts.URL, adminName, adminPass)

	username := fmt.Sprintf("apitest_%d", time.Now().UnixNano())
	password := fmt.Sprintf("Pass!%d", time.Now().UnixNano())
	user := requestRegister(t, ts.URL, adminToken, username, password)
	defer func() { _ = accts.Delete(ctx, username) }()
	if user.Username != username || user.Role != models.RoleUser {
		t.Fatalf("register mismatch: got %+v", user)
	}

	userToken := requestLogin(t, ts.URL, username, password)
	if status := post(t, ts.URL+"/logout", userToken, nil); status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}
	if status := post(t, ts.URL+"/logout", userToken, nil); status != http.StatusNotFound {
		t.Fatalf("second logout status = %d", status)
	}

	t.Logf("created user %s, logged in and out via the API", username)
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func requestRegister(t *testing.T, baseURL, bearer, username, password string) models.User {
	t.Helper()
	resp := send(t, baseURL+"/register", bearer, map[string]string{"username": username, "password": password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var out models.User
	decodeData(t, resp, &out)
	return out
}

func requestLogin(t *testing.T, baseURL, username, password string) string {
	t.Helper()
	resp := send(t, baseURL+"/login", "", map[string]string{"username": username, "password": password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeData(t, resp, &out)
	if strings.TrimSpace(out.Token) == "" {
		t.Fatal("login response missing token")
	}
	return out.Token
}

func post(t *testing.T, url, bearer string, payload any) int {
	t.Helper()
	resp := send(t, url, bearer, payload)
	resp.Body.Close()
	return resp.StatusCode
}

func send(t *testing.T, url, bearer string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s failed: %v", url, err)
	}
	return resp
}

func decodeData(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func mustGetEnv(t *testing.T, key string) string {
	t.Helper()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		t.Fatalf("%s is required", key)
	}
	return val
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
		"../../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
