package auth

import "github.com/golang-jwt/jwt/v5"

// Authenticator is the JWT fallback identity path. The hosted identity
// provider is an external collaborator; either way the service only consumes
// a verified user id and resolves memberships from its own records.
type Authenticator interface {
	GenerateTokens(userID int64) (access string, refresh string, err error)
	ValidateAccessToken(token string) (*jwt.Token, error)
	ValidateRefreshToken(token string) (*jwt.Token, error)
}
