package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/cache"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/database/tokens"
	"github.com/mrlokans/booklook/internal/database/users"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/log"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const defaultTokenExpiry = 24 * time.Hour

// Principal is the identity attached to an authenticated request. It is
// cached per user and dropped whenever the user's flags change.
type Principal struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginResult carries the plaintext bearer token. It is shown once and only
// its hash is stored.
type LoginResult struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

// Service handles registration, login and bearer token validation.
type Service struct {
	db      *gorm.DB
	users   *users.Repository
	tokens  *tokens.Repository
	cache   cache.Cache
	limiter *RateLimiter
	config  config.Auth
	now     func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, c cache.Cache, cfg config.Auth) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = defaultTokenExpiry
	}
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = DefaultRateLimitConfig().MaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultRateLimitConfig().LockoutDuration
	}
	return &Service{
		db:     db,
		users:  users.NewRepository(db),
		tokens: tokens.NewRepository(db),
		cache:  c,
		limiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
		config: cfg,
		now:    time.Now,
	}
}

// Close stops the rate limiter's cleanup loop.
func (s *Service) Close() {
	s.limiter.Stop()
}

// Register creates a regular, active account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	return s.CreateUser(ctx, in, false)
}

// CreateUser creates an account, optionally with the admin flag.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput, isAdmin bool) (*entities.User, error) {
	email := users.NormalizeEmail(in.Email)
	// RFC 5321 limit is 254
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, apperr.Validation("INVALID_EMAIL", "invalid email format")
	}

	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, passwordError(err)
	}

	user := &entities.User{
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      isAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.FromDB(err, "", "EMAIL_EXISTS")
	}

	log.Info("User registered", zap.Uint("user_id", user.ID), zap.Bool("admin", isAdmin))
	return user, nil
}

// Login checks credentials and issues a bearer token. Failures are counted
// both in memory per ip and email, and on the account itself.
func (s *Service) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	email = users.NormalizeEmail(email)
	if allowed, retryAfter := s.limiter.Allow(ip, email); !allowed {
		log.Warn("Login rate limited", zap.String("ip", ip), zap.Duration("retry_after", retryAfter))
		return nil, apperr.RateLimited("TOO_MANY_ATTEMPTS", "too many login attempts, try again later")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.limiter.RecordFailure(ip, email)
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to look up user")
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, apperr.Forbidden("ACCOUNT_LOCKED", "account is locked due to too many failed login attempts")
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.limiter.RecordFailure(ip, email)
		s.recordFailedLogin(ctx, user, now)
		return nil, invalidCredentials()
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("ACCOUNT_SUSPENDED", "account is suspended")
	}

	s.limiter.RecordSuccess(ip, email)
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		log.Warn("Failed to record login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	token, expiresAt, err := s.issueToken(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return &LoginResult{Token: token, TokenType: "bearer", ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) recordFailedLogin(ctx context.Context, user *entities.User, now time.Time) {
	var lockedUntil *time.Time
	if user.FailedLoginCount+1 >= s.config.MaxLoginAttempts {
		until := now.Add(s.config.LockoutDuration)
		lockedUntil = &until
	}
	if err := s.users.RecordFailedLogin(ctx, user.ID, lockedUntil); err != nil {
		log.Warn("Failed to record failed login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

func (s *Service) issueToken(ctx context.Context, userID uint, now time.Time) (string, time.Time, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", time.Time{}, apperr.Internal(err, "failed to generate token")
	}
	expiresAt := now.Add(s.config.TokenExpiry)
	token := &entities.APIToken{UserID: userID, TokenHash: hash, ExpiresAt: &expiresAt}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", time.Time{}, apperr.Internal(err, "failed to save token")
	}
	return plaintext, expiresAt, nil
}

// Logout revokes the presented bearer token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.tokens.DeleteByHash(ctx, HashToken(token)); err != nil {
		return apperr.Internal(err, "failed to revoke token")
	}
	return nil
}

// Authenticate resolves a plaintext bearer token to its user. Suspended users
// are rejected the same way as unknown tokens.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, invalidToken()
	}
	record, err := s.tokens.GetByHash(ctx, HashToken(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalidToken()
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to look up token")
	}

	now := s.now()
	if record.Expired(now) {
		return nil, apperr.Unauthorized("TOKEN_EXPIRED", "token expired")
	}

	principal, err := s.Principal(ctx, record.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, invalidToken()
		}
		return nil, err
	}
	if !principal.IsActive {
		return nil, invalidToken()
	}

	if err := s.tokens.Touch(ctx, record.ID, now); err != nil {
		log.Debug("Failed to touch token", zap.Uint("token_id", record.ID), zap.Error(err))
	}
	return principal, nil
}

// Principal returns the cached identity of a user.
func (s *Service) Principal(ctx context.Context, userID uint) (*Principal, error) {
	key := cache.UserAuthKey(userID)
	var principal Principal
	if cache.GetJSON(ctx, s.cache, key, &principal) {
		return &principal, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	principal = Principal{ID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin, IsActive: user.IsActive}
	cache.SetJSON(ctx, s.cache, key, principal, 0)
	return &principal, nil
}

// InvalidateUser drops the cached identity so the next request reloads it.
func (s *Service) InvalidateUser(ctx context.Context, userID uint) {
	s.cache.Delete(ctx, cache.UserAuthKey(userID))
}

func (s *Service) Me(ctx context.Context, userID uint) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	return user, nil
}

// ChangePassword verifies the current password before replacing it.
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(current, user.PasswordHash); err != nil {
		return apperr.Validation("INVALID_PASSWORD", "current password is incorrect")
	}
	hash, err := HashPassword(next, s.config.BcryptCost)
	if err != nil {
		return passwordError(err)
	}
	if err := s.users.Update(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
		return apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	return nil
}

// SetPassword replaces a password without the current one and signs the user
// out everywhere.
func (s *Service) SetPassword(ctx context.Context, userID uint, password string) error {
	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return passwordError(err)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Update(ctx, userID, map[string]any{
			"password_hash":      hash,
			"failed_login_count": 0,
			"locked_until":       nil,
		}); err != nil {
			return err
		}
		_, err := s.tokens.WithTx(tx).DeleteForUser(ctx, userID)
		return err
	})
	if err != nil {
		return apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	s.InvalidateUser(ctx, userID)
	return nil
}

// CleanupExpiredTokens deletes bearer tokens past their expiry.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, apperr.Internal(err, "failed to delete expired tokens")
	}
	return n, nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, apperr.Internal(err, "failed to count users")
	}
	return count > 0, nil
}

func passwordError(err error) error {
	switch {
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong), errors.Is(err, ErrPasswordTooWeak):
		return apperr.Validation("WEAK_PASSWORD", err.Error())
	default:
		return apperr.Internal(err, "failed to hash password")
	}
}

func invalidCredentials() error {
	return apperr.Unauthorized("INVALID_CREDENTIALS", "invalid email or password")
}

func invalidToken() error {
	return apperr.Unauthorized("INVALID_TOKEN", "invalid or expired token")
}
