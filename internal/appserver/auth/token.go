// Package auth implements the app server's concrete crypto port: local HS256
// JWT signing/verification and bcrypt password hashing, grounded on the
// original app server's clients/session.rs and models/claims.rs (Claims{sub,
// username, exp}, 24h TTL).
package auth

import (
	"fmt"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenService signs and verifies session JWTs with a local secret and hashes
// passwords with bcrypt, implementing types.TokenService.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// New builds a TokenService with the given HS256 secret and session TTL.
func New(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

type jwtClaims struct {
	Sub      int    `json:"sub"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sign encodes claims into a signed HS256 JWT; Exp is overwritten to now+ttl.
func (t *TokenService) Sign(claims types.Claims) (string, error) {
	exp := time.Now().Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Sub:      claims.Sub,
		Username: claims.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	return token.SignedString(t.secret)
}

// Verify validates signature and expiry (the JWT library's default
// validation) and returns the decoded claims.
func (t *TokenService) Verify(tokenString string) (types.Claims, error) {
	var claims jwtClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return types.Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	exp := int64(0)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}
	return types.Claims{Sub: claims.Sub, Username: claims.Username, Exp: exp}, nil
}

// HashPassword hashes a plaintext password with bcrypt's default cost,
// matching the original app server's register.rs.
func (t *TokenService) HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether plain matches the stored bcrypt hash.
func (t *TokenService) ComparePassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

var _ types.TokenService = (*TokenService)(nil)
