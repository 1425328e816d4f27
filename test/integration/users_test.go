//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiplayers/arena/internal/auth"
	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/provider"
	"github.com/multiplayers/arena/test/integration/testutil"
)

func adminSession(t *testing.T, env *testutil.TestEnv) string {
	t.Helper()
	id := env.SeedAdmin("ops@test.com", "correct-horse", domain.RoleAdmin)
	return env.AdminToken(id, "ops@test.com", domain.RoleAdmin)
}

// ─── User Lifecycle ─────────────────────────────────────────────────────────

func TestUsers_CreateAndGet(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := adminSession(t, env)

	resp := env.POST("/api/users", map[string]string{
		"username": "alice", "email": "alice@test.com", "password": "password123",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.User
	testutil.DecodeJSON(t, resp, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.RolePlayer, created.Role)

	get := env.GET(fmt.Sprintf("/api/users/%d", created.ID), token)
	testutil.AssertStatus(t, get, http.StatusOK)
	get.Body.Close()

	// The mutation left an audit event behind.
	var events int
	err := env.Pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM event_outbox WHERE event_type = $1`,
		string(domain.EventUserCreated)).Scan(&events)
	require.NoError(t, err)
	assert.Equal(t, 1, events)
}

func TestUsers_DuplicateEmailConflicts(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := adminSession(t, env)

	resp := env.POST("/api/users", map[string]string{
		"username": "alice", "email": "dup@test.com", "password": "password123",
	}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.POST("/api/users", map[string]string{
		"username": "bob", "email": "dup@test.com", "password": "password123",
	}, token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, "CONFLICT")
}

func TestUsers_ConcurrentDuplicateCreateYieldsOneRow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := adminSession(t, env)

	// Both requests pass the pre-insert uniqueness check; the unique index
	// decides the race and the loser surfaces as a Conflict.
	const racers = 4
	statuses := make([]int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := env.POST("/api/users", map[string]string{
				"username": fmt.Sprintf("racer%d", i),
				"email":    "race@test.com",
				"password": "password123",
			}, token)
			r.Body.Close()
			statuses[i] = r.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", s)
		}
	}
	assert.Equal(t, 1, created, "exactly one insert may win, got %v", statuses)

	var rows int
	err := env.Pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM users WHERE email = $1`, "race@test.com").Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestUsers_UpdateRespondsNoContent(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := adminSession(t, env)

	resp := env.POST("/api/users", map[string]string{
		"username": "alice", "email": "alice@test.com", "password": "password123",
	}, token)
	var created domain.User
	testutil.DecodeJSON(t, resp, &created)

	update := env.PUT(fmt.Sprintf("/api/users/%d", created.ID), map[string]string{
		"username": "alice2",
	}, token)
	defer update.Body.Close()
	assert.Equal(t, http.StatusNoContent, update.StatusCode)

	var username string
	err := env.Pool.QueryRow(t.Context(),
		`SELECT username FROM users WHERE id = $1`, created.ID).Scan(&username)
	require.NoError(t, err)
	assert.Equal(t, "alice2", username)
}

func TestUsers_DeleteIsSoft(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := adminSession(t, env)

	resp := env.POST("/api/users", map[string]string{
		"username": "alice", "email": "alice@test.com", "password": "password123",
	}, token)
	var created domain.User
	testutil.DecodeJSON(t, resp, &created)

	del := env.DELETE(fmt.Sprintf("/api/users/%d", created.ID), token)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	// The row survives, flagged deleted.
	var deleted bool
	err := env.Pool.QueryRow(t.Context(),
		`SELECT is_deleted FROM users WHERE id = $1`, created.ID).Scan(&deleted)
	require.NoError(t, err)
	assert.True(t, deleted)

	get := env.GET(fmt.Sprintf("/api/users/%d", created.ID), token)
	testutil.AssertStatus(t, get, http.StatusNotFound)
	get.Body.Close()

	// Visible again when the listing asks for deleted rows.
	var listed []domain.User
	list := env.GET("/api/users?includeDeleted=true", token)
	testutil.DecodeJSON(t, list, &listed)
	assert.Len(t, listed, 1)

	list = env.GET("/api/users", token)
	var visible []domain.User
	testutil.DecodeJSON(t, list, &visible)
	assert.Empty(t, visible)
}

func TestUsers_ResetPasswordReplacesCredential(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := adminSession(t, env)

	resp := env.POST("/api/users", map[string]string{
		"username": "alice", "email": "alice@test.com", "password": "password123",
	}, token)
	var created domain.User
	testutil.DecodeJSON(t, resp, &created)

	reset := env.POST(fmt.Sprintf("/api/users/%d/reset-password", created.ID), map[string]string{
		"new_password": "changed456",
	}, token)
	testutil.AssertStatus(t, reset, http.StatusOK)
	reset.Body.Close()

	var hash string
	err := env.Pool.QueryRow(t.Context(),
		`SELECT password_hash FROM users WHERE id = $1`, created.ID).Scan(&hash)
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword("changed456", hash))
	assert.False(t, auth.VerifyPassword("password123", hash))
}

func TestUsers_KycVerify(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := adminSession(t, env)

	resp := env.POST("/api/users", map[string]string{
		"username": "alice", "email": "alice@test.com", "password": "password123",
	}, token)
	var created domain.User
	testutil.DecodeJSON(t, resp, &created)

	kyc := env.POST(fmt.Sprintf("/api/users/%d/kyc-verify", created.ID), nil, token)
	testutil.AssertStatus(t, kyc, http.StatusOK)
	kyc.Body.Close()

	var verified bool
	err := env.Pool.QueryRow(t.Context(),
		`SELECT is_kyc_verified FROM users WHERE id = $1`, created.ID).Scan(&verified)
	require.NoError(t, err)
	assert.True(t, verified)
}

// ─── Authorization ──────────────────────────────────────────────────────────

func TestUsers_RequireAdminRealmAndRole(t *testing.T) {
	env := testutil.NewTestEnv(t)

	noToken := env.GET("/api/users", "")
	testutil.AssertStatus(t, noToken, http.StatusUnauthorized)
	noToken.Body.Close()

	playerToken, err := env.JWTMgr.GenerateToken(auth.RealmPlayer, 1, "p@test.com", domain.RolePlayer, "p")
	require.NoError(t, err)
	wrongRealm := env.GET("/api/users", playerToken)
	testutil.AssertStatus(t, wrongRealm, http.StatusUnauthorized)
	wrongRealm.Body.Close()

	// Admin realm but a role outside the management set.
	weakToken, err := env.JWTMgr.GenerateToken(auth.RealmAdmin, 1, "p@test.com", domain.RolePlayer, "p")
	require.NoError(t, err)
	wrongRole := env.GET("/api/users", weakToken)
	testutil.AssertStatus(t, wrongRole, http.StatusForbidden)
	wrongRole.Body.Close()
}

// ─── Social Login ───────────────────────────────────────────────────────────

func TestUsers_SocialLoginCreatesThenReusesAccount(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.Google.Grant("good-token", provider.Identity{
		SubjectID: "google-sub-1", Email: "social@test.com", Name: "Social Player",
	})

	resp := env.POST("/api/users/social-login", map[string]string{
		"provider": "google", "token": "good-token",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, result.User)
	assert.Equal(t, "google-sub-1", result.User.GoogleID)

	// Repeat login finds the same row.
	again := env.POST("/api/users/social-login", map[string]string{
		"provider": "google", "token": "good-token",
	}, "")
	again.Body.Close()
	assert.Equal(t, http.StatusOK, again.StatusCode)

	var rows int
	err := env.Pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM users WHERE google_id = $1`, "google-sub-1").Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestUsers_SocialLoginRejectsUnknownToken(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.POST("/api/users/social-login", map[string]string{
		"provider": "google", "token": "bogus",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, "UNAUTHORIZED")
}
