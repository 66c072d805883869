package auth

import "strings"

// RequestGate resolves an Authorization header to an authenticated user ID.
// The header is expected as "<scheme> <token>"; the scheme is discarded
// without inspection, so "Bearer", "Token", or anything else is accepted.
type RequestGate struct {
	tokens *TokenService
}

// NewRequestGate creates a gate backed by the given token service.
func NewRequestGate(tokens *TokenService) *RequestGate {
	return &RequestGate{tokens: tokens}
}

// Authenticate returns the user ID carried by the header's token. A missing
// header, a value with no scheme separator, or any verification failure
// yields ErrInvalidToken.
func (g *RequestGate) Authenticate(header string) (string, error) {
	_, token, found := strings.Cut(header, " ")
	if !found || token == "" {
		return "", ErrInvalidToken
	}
	return g.tokens.Verify(token)
}
