package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/inkpost/internal/apperror"
	"github.com/sakif/inkpost/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "user", u), ANY package that knows the string "user"
// can read or shadow your value. Using a package-private type prevents collisions:
// only THIS package can create a key of type contextKey.
type contextKey string

const userKey contextKey = "user"

// Rejection reasons. They are part of the API contract: clients show them.
const (
	ReasonNoToken      = "no token provided"
	ReasonInvalidToken = "invalid token"
	ReasonUserNotFound = "user not found"
)

// UserFinder is the slice of the user store the authenticator needs.
// repository.UserRepository satisfies it.
type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// ErrorWriter renders an error as an HTTP response. The handler package
// provides the implementation so every error body has the same shape.
type ErrorWriter func(w http.ResponseWriter, err error)

// Authenticator turns an Authorization header into a resolved user.
//
// It is a pure gate: Authenticate never mutates the request or the store,
// so it can be exercised without any HTTP machinery.
type Authenticator struct {
	tokens *TokenService
	users  UserFinder
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenService, users UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate validates the bearer token in header and loads its user.
//
// FAILURE MODES (all *apperror.AppError):
//  1. header missing or not "Bearer <token>" → Unauthenticated("no token provided")
//  2. token fails signature/expiry checks   → Unauthenticated("invalid token")
//  3. token's user no longer exists          → Unauthenticated("user not found")
//  4. the user lookup itself fails           → Store error (500)
//
// The returned user never carries the password hash.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*model.User, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, apperror.Unauthenticated(ReasonNoToken)
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthenticated(ReasonInvalidToken)
	}

	user, err := a.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(ReasonUserNotFound)
		}
		if errors.Is(err, apperror.ErrStore) {
			return nil, err
		}
		return nil, apperror.Store("auth: loading user", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// bearerToken extracts <token> from "Bearer <token>". The scheme is
// case-insensitive (RFC 7235); the token must be non-empty.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It runs the Authenticator against the Authorization header. On success the
// resolved user is stored in the request context (read it back with
// UserFromContext); on failure writeErr renders the error and the chain stops.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(a *Authenticator, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeErr(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// ContextWithUser returns a copy of ctx carrying u.
func ContextWithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Returns (nil, false) if the request did not pass through RequireAuth.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // route is missing RequireAuth
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
