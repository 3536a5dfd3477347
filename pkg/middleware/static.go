package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownToken is returned when a bearer token matches no configured
// credential
var ErrUnknownToken = errors.New("unknown token")

// StaticTokenVerifier verifies bearer tokens against a fixed token to user
// ID table loaded from configuration. Intended for service-to-service
// credentials; interactive logins belong to the authentication service.
type StaticTokenVerifier struct {
	tokens map[string]string
}

// NewStaticTokenVerifier creates a verifier over the given token to user ID
// table
func NewStaticTokenVerifier(tokens map[string]string) *StaticTokenVerifier {
	return &StaticTokenVerifier{tokens: tokens}
}

// VerifyToken resolves the token to its user ID
func (v *StaticTokenVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	userID, ok := v.tokens[token]
	if !ok {
		return "", ErrUnknownToken
	}
	return userID, nil
}

// ParseStaticTokens parses comma-separated "token:userID" pairs into a
// token table. At least one pair is required.
func ParseStaticTokens(raw string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, userID, ok := strings.Cut(pair, ":")
		if !ok || token == "" || userID == "" {
			return nil, fmt.Errorf("invalid token pair: %q", pair)
		}
		tokens[token] = userID
	}
	if len(tokens) == 0 {
		return nil, errors.New("no token pairs configured")
	}
	return tokens, nil
}
