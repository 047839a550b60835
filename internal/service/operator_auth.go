package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// RoleOperator is the role allowed to change interest rules.
const RoleOperator = "operator"

const tokenIssuer = "interest-ledger"

// OperatorClaims are the claims of an operator token.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// OperatorAuth issues and validates HS256 operator tokens.
type OperatorAuth struct {
	secret []byte
	ttl    time.Duration
}

// NewOperatorAuth creates an OperatorAuth signing with secret.
func NewOperatorAuth(secret string, ttl time.Duration) *OperatorAuth {
	return &OperatorAuth{secret: []byte(secret), ttl: ttl}
}

// IssueToken signs an operator token for subject.
func (a *OperatorAuth) IssueToken(subject string) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		Role: RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses tokenString and requires the operator role.
func (a *OperatorAuth) ValidateToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Role != RoleOperator {
		return nil, &domain.ErrUnauthorized{Message: "operator role required"}
	}
	return claims, nil
}
