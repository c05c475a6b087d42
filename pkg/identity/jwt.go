package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// LinkClaims is the claim set minted by the account-linking server.
type LinkClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

// JWTStrategy verifies HS256 tokens against secret and extracts the uid claim,
// falling back to sub.
func JWTStrategy(secret []byte) Strategy {
	return func(ctx context.Context, token string) (string, error) {
		if strings.Count(token, ".") != 2 {
			return "", errNotApplicable
		}

		claims := &LinkClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		}, jwt.WithExpirationRequired())
		if err != nil || !parsed.Valid {
			return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}

		if claims.UID != "" {
			return claims.UID, nil
		}
		if claims.Subject != "" {
			return claims.Subject, nil
		}
		return "", ErrUnknownUser
	}
}
