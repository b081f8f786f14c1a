package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Operator API roles.
const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
)

// ErrNoExpiry is returned by ExpiresAt for tokens without an exp claim.
var ErrNoExpiry = errors.New("jwt: token has no exp claim")

// Claims are the operator API token claims. CompanyID pins the operator to
// one company partition; zero means any.
type Claims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	CompanyID int64  `json:"company_id,omitempty"`
	Role      string `json:"role"`
}

// Generate signs an operator token.
func Generate(secret string, operatorID int64, username string, companyID int64, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: empty secret")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(operatorID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		Username:  username,
		CompanyID: companyID,
		Role:      role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates an operator token and returns its claims. It fails for
// invalid, expired or wrongly signed tokens.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: empty secret")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("jwt: invalid claims")
	}
	return claims, nil
}

// ExpiresAt reads the exp claim of a backend-issued token without verifying
// the signature; the agent does not hold the backend's key and only uses the
// value to bound its token cache.
func ExpiresAt(tokenString string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, fmt.Errorf("jwt: parse unverified: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
