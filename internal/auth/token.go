package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"tripledger/pkg/models"
)

// TokenVerifier validates HS256 bearer tokens and extracts the caller.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses tokenStr and returns the caller it was issued to. The token
// must carry string claims user_id and role.
func (v *TokenVerifier) Verify(tokenStr string) (models.Caller, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Caller{}, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Caller{}, fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}

	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return models.Caller{}, fmt.Errorf("%w: token has no user_id", ErrUnauthenticated)
	}
	caller := models.Caller{ID: userID, Role: models.Role(role)}
	if !caller.Role.Valid() {
		return models.Caller{}, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, role)
	}
	return caller, nil
}
