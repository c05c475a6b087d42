package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/urmzd/homai-alexa/pkg/device"
)

// UserLookup finds users by login email.
type UserLookup interface {
	UserByEmail(ctx context.Context, email string) (*device.User, error)
}

// OpaqueDelimiter separates the email from the rest of a legacy code.
const OpaqueDelimiter = ":"

// OpaqueStrategy decodes a legacy base64 "email:suffix" token and resolves
// the email through users.
func OpaqueStrategy(users UserLookup) Strategy {
	return func(ctx context.Context, token string) (string, error) {
		raw, err := decodeBase64(token)
		if err != nil {
			return "", ErrMalformedToken
		}
		email, _, _ := strings.Cut(string(raw), OpaqueDelimiter)
		email = strings.TrimSpace(email)
		if email == "" || !strings.Contains(email, "@") {
			return "", ErrMalformedToken
		}

		u, err := users.UserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, device.ErrUserNotFound) {
				return "", ErrUnknownUser
			}
			return "", err
		}
		return u.UserID, nil
	}
}

func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrMalformedToken
}
