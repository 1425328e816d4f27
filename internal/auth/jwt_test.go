package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiplayers/arena/internal/domain"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("test-secret-key", 24*time.Hour, 2*time.Hour)
}

func TestGenerateAndValidatePlayerToken(t *testing.T) {
	mgr := newTestJWTManager()

	token, err := mgr.GenerateToken(RealmPlayer, 42, "player@test.com", domain.RolePlayer, "player42")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := mgr.ValidateTokenForRealm(token, RealmPlayer)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, RealmPlayer, claims.Realm)
	assert.Equal(t, "player@test.com", claims.Email)
	assert.Equal(t, "player42", claims.Username)

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestGenerateAndValidateAdminToken(t *testing.T) {
	mgr := newTestJWTManager()

	token, err := mgr.GenerateToken(RealmAdmin, 7, "admin@test.com", domain.RoleAdmin, "root")
	require.NoError(t, err)

	claims, err := mgr.ValidateTokenForRealm(token, RealmAdmin)
	require.NoError(t, err)
	assert.Equal(t, RealmAdmin, claims.Realm)
	assert.Equal(t, string(domain.RoleAdmin), claims.Role)
}

func TestGenerateToken_UnknownRealm(t *testing.T) {
	mgr := newTestJWTManager()

	_, err := mgr.GenerateToken(Realm("affiliate"), 1, "", domain.RolePlayer, "")
	assert.Error(t, err)
}

func TestRealmMismatchRejected(t *testing.T) {
	mgr := newTestJWTManager()

	token, err := mgr.GenerateToken(RealmPlayer, 1, "", domain.RolePlayer, "")
	require.NoError(t, err)

	_, err = mgr.ValidateTokenForRealm(token, RealmAdmin)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected realm admin")
}

func TestInvalidSecretRejected(t *testing.T) {
	mgr1 := NewJWTManager("secret-1", 24*time.Hour, 2*time.Hour)
	mgr2 := NewJWTManager("secret-2", 24*time.Hour, 2*time.Hour)

	token, err := mgr1.GenerateToken(RealmPlayer, 1, "", domain.RolePlayer, "")
	require.NoError(t, err)

	_, err = mgr2.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	mgr := NewJWTManager("secret", 1*time.Millisecond, 1*time.Millisecond)

	token, err := mgr.GenerateToken(RealmAdmin, 1, "", domain.RoleAdmin, "")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestAccountID_NonNumericSubject(t *testing.T) {
	claims := &Claims{}
	claims.Subject = "not-a-number"

	_, err := claims.AccountID()
	assert.Error(t, err)
}
