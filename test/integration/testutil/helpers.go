//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/multiplayers/arena/internal/auth"
	"github.com/multiplayers/arena/internal/domain"
)

// SeedAdmin inserts an admin row directly and returns its id.
func (env *TestEnv) SeedAdmin(email, password string, role domain.Role) int64 {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hash, err := auth.HashPassword(password)
	if err != nil {
		env.t.Fatalf("SeedAdmin: hash: %v", err)
	}

	var id int64
	err = env.Pool.QueryRow(ctx, `
		INSERT INTO admins (email, username, role, password_hash, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, true, false)
		RETURNING id`,
		email, "ops", string(role), hash).Scan(&id)
	if err != nil {
		env.t.Fatalf("SeedAdmin: insert: %v", err)
	}
	return id
}

// AdminToken mints a valid admin-realm JWT for the given account.
func (env *TestEnv) AdminToken(id int64, email string, role domain.Role) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmAdmin, id, email, role, "ops")
	if err != nil {
		env.t.Fatalf("AdminToken: %v", err)
	}
	return token
}

// LoginAdmin drives the full password + 2FA flow and returns the session token.
func (env *TestEnv) LoginAdmin(email, password string) string {
	env.t.Helper()

	resp := env.POST("/api/admin/auth/login", map[string]string{
		"email": email, "password": password,
	}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("LoginAdmin: login expected 200, got %d", resp.StatusCode)
	}

	code, err := env.Mailer.LastCode()
	if err != nil {
		env.t.Fatalf("LoginAdmin: %v", err)
	}

	resp = env.POST("/api/admin/auth/verify-2fa", map[string]string{
		"email": email, "code": code,
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("LoginAdmin: verify expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("LoginAdmin: decode: %v", err)
	}
	return result.Token
}

// GET performs a GET request with optional auth token.
func (env *TestEnv) GET(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, token)
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token)
}

// PUT performs a PUT request with optional auth token.
func (env *TestEnv) PUT(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPut, path, body, token)
}

// DELETE performs a DELETE request with optional auth token.
func (env *TestEnv) DELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodDelete, path, nil, token)
}

func (env *TestEnv) do(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
