// Package auth authenticates BookLook users.
//
// Clients log in with email and password and receive an opaque bearer token.
// Only its SHA-256 hash is stored, so tokens can be revoked one by one on
// logout or all at once when an admin suspends the account. Browsers may use
// a cookie session instead; cookie-authenticated writes are CSRF protected.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<base64-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h              # Session duration
//	AUTH_TOKEN_EXPIRY=24h                  # Bearer token expiry
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Failures before lockout
//
// # Usage
//
//	authService := auth.NewService(db, cache, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager)
//	router.Use(sessionManager.LoadSession(), authMiddleware.Handler())
//	user := router.Group("/user", auth.RequireAuth())
//
// Extract the user in handlers:
//
//	userID := auth.GetUserID(c) // 0 for anonymous requests
package auth
