package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/cache"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/database"
	"github.com/mrlokans/booklook/internal/entities"
)

const testPassword = "ValidPass123"

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime:  24 * time.Hour,
		TokenExpiry:      time.Hour,
		BcryptCost:       4, // Low cost for faster tests
		MaxLoginAttempts: 3,
		RateLimitWindow:  15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
	}
}

func setupService(t *testing.T) (*Service, *database.Database) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)

	svc := NewService(db.DB, cache.NewMemory(time.Minute, 0), testAuthConfig())
	t.Cleanup(func() {
		svc.Close()
		db.Close()
	})
	return svc, db
}

func register(t *testing.T, svc *Service, email string) *entities.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  testPassword,
		FirstName: "Test",
		LastName:  "Reader",
	})
	require.NoError(t, err)
	return user
}

func TestService_Register(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	user := register(t, svc, " Reader@Example.com ")
	assert.Equal(t, "reader@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, testPassword, user.PasswordHash)

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"duplicate email", "READER@example.com", testPassword, "EMAIL_EXISTS"},
		{"invalid email", "not-an-email", testPassword, "INVALID_EMAIL"},
		{"short password", "short@example.com", "Ab1", "WEAK_PASSWORD"},
		{"no digit", "nodigit@example.com", "NoDigitsHere", "WEAK_PASSWORD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, RegisterInput{Email: tt.email, Password: tt.password})
			require.Error(t, err)
			assert.True(t, apperr.Is(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestService_CreateUser_Admin(t *testing.T) {
	svc, _ := setupService(t)

	admin, err := svc.CreateUser(context.Background(), RegisterInput{Email: "admin@example.com", Password: testPassword}, true)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	has, err := svc.HasUsers(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
}

func TestService_LoginAndAuthenticate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	user := register(t, svc, "reader@example.com")

	result, err := svc.Login(ctx, "Reader@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, result.Token, 64)
	assert.Equal(t, "bearer", result.TokenType)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotNil(t, result.User.LastLoginAt)

	principal, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.ID)
	assert.False(t, principal.IsAdmin)

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "deadbeef")
		assert.True(t, apperr.Is(err, "INVALID_TOKEN"))
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		require.NoError(t, svc.Logout(ctx, result.Token))
		_, err := svc.Authenticate(ctx, result.Token)
		assert.True(t, apperr.Is(err, "INVALID_TOKEN"))
	})
}

func TestService_Authenticate_Expired(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	register(t, svc, "reader@example.com")

	result, err := svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, result.Token)
	assert.True(t, apperr.Is(err, "TOKEN_EXPIRED"))

	deleted, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestService_Login_Failures(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	user := register(t, svc, "reader@example.com")

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", testPassword, "10.0.0.2")
		assert.True(t, apperr.Is(err, "INVALID_CREDENTIALS"))
	})

	t.Run("wrong password locks the account", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := svc.Login(ctx, "reader@example.com", "WrongPass123", "10.0.0.3")
			assert.True(t, apperr.Is(err, "INVALID_CREDENTIALS"), "attempt %d: %v", i, err)
		}

		var stored entities.User
		require.NoError(t, db.DB.First(&stored, user.ID).Error)
		assert.Equal(t, 3, stored.FailedLoginCount)
		require.NotNil(t, stored.LockedUntil)

		// Same ip and email is now throttled in memory
		_, err := svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.3")
		assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))

		// A fresh ip still hits the account lock
		_, err = svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.4")
		assert.True(t, apperr.Is(err, "ACCOUNT_LOCKED"))
	})

	t.Run("admin reset clears the lock", func(t *testing.T) {
		require.NoError(t, svc.SetPassword(ctx, user.ID, "Another123"))
		_, err := svc.Login(ctx, "reader@example.com", "Another123", "10.0.0.5")
		require.NoError(t, err)
	})
}

func TestService_Login_Suspended(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	user := register(t, svc, "reader@example.com")

	result, err := svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)

	require.NoError(t, db.DB.Model(&entities.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	// The cached principal still says active until invalidated
	svc.InvalidateUser(ctx, user.ID)
	_, err = svc.Authenticate(ctx, result.Token)
	assert.True(t, apperr.Is(err, "INVALID_TOKEN"))

	_, err = svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.1")
	assert.True(t, apperr.Is(err, "ACCOUNT_SUSPENDED"))
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	user := register(t, svc, "reader@example.com")

	err := svc.ChangePassword(ctx, user.ID, "WrongPass123", "NewPass12345")
	assert.True(t, apperr.Is(err, "INVALID_PASSWORD"))

	err = svc.ChangePassword(ctx, user.ID, testPassword, "weak")
	assert.True(t, apperr.Is(err, "WEAK_PASSWORD"))

	require.NoError(t, svc.ChangePassword(ctx, user.ID, testPassword, "NewPass12345"))
	_, err = svc.Login(ctx, "reader@example.com", "NewPass12345", "10.0.0.1")
	require.NoError(t, err)
}

func TestService_SetPassword_RevokesTokens(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	user := register(t, svc, "reader@example.com")

	first, err := svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "reader@example.com", testPassword, "10.0.0.2")
	require.NoError(t, err)

	require.NoError(t, svc.SetPassword(ctx, user.ID, "Replaced123"))
	for _, token := range []string{first.Token, second.Token} {
		_, err := svc.Authenticate(ctx, token)
		assert.True(t, apperr.Is(err, "INVALID_TOKEN"))
	}

	err = svc.SetPassword(ctx, 999, "Replaced123")
	assert.True(t, apperr.Is(err, "USER_NOT_FOUND"))
}

func TestService_PrincipalCache(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()
	user := register(t, svc, "reader@example.com")

	p, err := svc.Principal(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, p.IsAdmin)

	require.NoError(t, db.DB.Model(&entities.User{}).Where("id = ?", user.ID).Update("is_admin", true).Error)
	p, err = svc.Principal(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, p.IsAdmin, "served from cache")

	svc.InvalidateUser(ctx, user.ID)
	p, err = svc.Principal(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)

	_, err = svc.Principal(ctx, 999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
