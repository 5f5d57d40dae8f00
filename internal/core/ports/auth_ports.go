package ports

import "context"

type TokenPayload struct {
	Email string
	Name  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

type AuthService interface {
	LoginWithGoogle(ctx context.Context, googleToken string) (string, error) // returns access_token, error
	IssueAccessToken(identity string) (string, error)
	ParseAccessToken(token string) (string, error) // returns identity
}
