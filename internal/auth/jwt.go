// Package auth provides credential hashing, JWT issuance/validation, the
// bearer-token request gate and the ownership guard for the blog API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs /api/auth/register or /api/auth/login
//  2. Server verifies the credentials and issues a signed JWT
//  3. Client sends "Authorization: Bearer <jwt>" on later requests
//  4. RequireAuth validates the JWT, loads the user and puts it in the
//     request context
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"id":"...","username":"...","email":"...","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Tokens are stateless: there is no server-side revocation list, so a
// validly signed token is accepted until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "inkpost"

// MinSecretLength is the shortest signing secret NewTokenService accepts.
const MinSecretLength = 16

// ErrInvalidToken wraps every reason a token can be rejected for.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is the claim set a caller asks to have signed.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

// Claims is the JWT payload: the identity fields plus the registered claims
// (iss, iat, exp, jti) managed by the jwt library.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the caller-supplied part of the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username, Email: c.Email}
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key and the token lifetime. Both are read from
// configuration once at startup and never change afterwards, so a single
// TokenService is safe to share between all request goroutines.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and token lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive, got %s", ttl)
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for id using the configured lifetime.
func (s *TokenService) Issue(id Identity) (string, error) {
	return s.IssueWithTTL(id, s.ttl)
}

// IssueWithTTL signs a token for id that expires ttl from now.
//
// Every token gets a random jti, so two tokens for the same identity are
// never byte-identical even when issued within the same second (the exp/iat
// claims only have one-second resolution).
//
// Signing algorithm: HS256 (HMAC-SHA256): symmetric, same key signs and verifies.
func (s *TokenService) IssueWithTTL(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", fmt.Errorf("auth: cannot issue a token without a user id")
	}

	now := s.now()
	c := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Email:    id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with, signed with our secret)
//   - Algorithm is HS256 (prevents "alg: none" / algorithm confusion attacks)
//   - Issuer matches
//   - exp is present and strictly in the future (no leeway)
//
// Every failure wraps ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	c := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidToken)
	}
	if c.UserID == "" || c.UserID != c.Subject {
		return nil, fmt.Errorf("%w: token has no usable subject", ErrInvalidToken)
	}

	return c, nil
}
