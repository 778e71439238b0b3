package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/field-survey/model"
)

const refreshTokenTTL = 8760 * time.Hour

// Claim names carried by access tokens.
const (
	ClaimUserID = "user_id"
	ClaimRoles  = "roles"
)

type UserStore interface {
	UserByEmail(ctx context.Context, email string) (model.User, []byte, error)
	StoreToken(ctx context.Context, email, tokenID, refreshTokenID string, expiration time.Time) error
	ConsumeToken(ctx context.Context, email, tokenID, refreshTokenID string) error
}

type credentialsVerifier struct {
	users UserStore
}

func CredentialsVerifier(users UserStore) oauth.CredentialsVerifier {
	return &credentialsVerifier{users}
}

// NewBearerServer issues and refreshes tokens for the users in store.
func NewBearerServer(users UserStore, secret string, ttl time.Duration) *oauth.BearerServer {
	return oauth.NewBearerServer(secret, ttl, CredentialsVerifier(users), nil)
}

func (cv *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	_, hash, err := cv.users.UserByEmail(r.Context(), username)
	if err != nil {
		return err
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

func (cv *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cv.users.StoreToken(context.Background(), credential, tokenID, refreshTokenID, time.Now().Add(refreshTokenTTL))
}

func (cv *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	err := cv.users.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID)
	if err != nil {
		return errors.New("could not refresh")
	}
	return nil
}

func (cv *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	u, _, err := cv.users.UserByEmail(r.Context(), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		ClaimUserID: u.ID.String(),
		ClaimRoles:  u.Role,
	}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
