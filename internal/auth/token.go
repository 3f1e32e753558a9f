package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/skillcert/skillcert-api/internal/models"
)

// Token lifetimes. Compromise mitigation is solely the short access lifetime;
// there is no revocation list.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken indicates a token failed signature, structure, or expiry
// checks. Callers never learn which.
var ErrInvalidToken = errors.New("invalid or expired token")

// AccessClaims are carried by short-lived access tokens.
type AccessClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by long-lived refresh tokens. The role is omitted
// on purpose: it is re-resolved from the identity record when refreshing.
type RefreshClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates the signed, self-contained session
// credentials. Validity is fully determined by signature and expiry, not by
// any server-side lookup.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

// NewTokenIssuer builds an issuer from the two process-level signing secrets.
func NewTokenIssuer(accessSecret, refreshSecret string) (*TokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("token signing secrets must not be empty")
	}

	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}, nil
}

// MintAccessToken signs a 15-minute access token for the user.
func (i *TokenIssuer) MintAccessToken(user models.User) (string, error) {
	issuedAt := i.now()
	claims := AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(AccessTokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
}

// MintRefreshToken signs a 7-day refresh token for the user.
func (i *TokenIssuer) MintRefreshToken(user models.User) (string, error) {
	issuedAt := i.now()
	claims := RefreshClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(RefreshTokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
}

// ParseAccessToken validates an access token and returns its claims.
func (i *TokenIssuer) ParseAccessToken(tokenString string) (AccessClaims, error) {
	var claims AccessClaims
	if err := i.parse(tokenString, &claims, i.accessSecret); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (i *TokenIssuer) ParseRefreshToken(tokenString string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := i.parse(tokenString, &claims, i.refreshSecret); err != nil {
		return RefreshClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (i *TokenIssuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
