// Package identity resolves the platform bearer token carried by a directive
// into the id of the user who owns the targeted devices.
//
// Two token shapes coexist: signed JWTs issued by the account-linking server,
// and the older opaque base64 "email:suffix" codes. Each shape is handled by a
// Strategy; the Resolver tries them in order and stops at the first success.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is wrapped by every resolution failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingToken indicates the directive carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidSignature indicates a signed token failed verification or has expired.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrMalformedToken indicates an opaque token could not be decoded.
	ErrMalformedToken = errors.New("malformed token")

	// ErrUnknownUser indicates the token decoded cleanly but names no known user.
	ErrUnknownUser = errors.New("unknown user")

	// errNotApplicable lets a strategy decline a token shape it does not handle.
	errNotApplicable = errors.New("token shape not handled")
)

// Strategy turns a token into a user id. A strategy that does not recognise
// the token's shape returns errNotApplicable so the next one is tried.
type Strategy func(ctx context.Context, token string) (string, error)

// Resolver tries strategies in order.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a Resolver over the given ordered strategies.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the user id for token. All errors wrap ErrUnauthorized and
// one of the specific causes above.
func (r *Resolver) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return "", unauthorized(ErrMissingToken)
	}

	var lastErr error
	for _, s := range r.strategies {
		userID, err := s(ctx, token)
		if err == nil && userID != "" {
			return userID, nil
		}
		if errors.Is(err, errNotApplicable) {
			continue
		}
		if err == nil {
			err = ErrUnknownUser
		}
		lastErr = err
		// A token of the right shape that fails verification is final.
		break
	}
	if lastErr == nil {
		lastErr = ErrMalformedToken
	}
	if errors.Is(lastErr, ErrUnauthorized) {
		return "", lastErr
	}
	return "", unauthorized(lastErr)
}

func unauthorized(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnauthorized, cause)
}
