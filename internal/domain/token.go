// Package domain contains the core sync entities and the ports adapters implement.
package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EpochSeconds is a Unix timestamp in seconds. It decodes from either a JSON
// number or a numeric string, since first-run seeds come from the environment
// verbatim.
type EpochSeconds int64

// UnmarshalJSON accepts 1700000000 and "1700000000".
func (e *EpochSeconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("epoch seconds: %w", err)
	}
	*e = EpochSeconds(n)
	return nil
}

// TokenRecord is the source provider's persisted OAuth token triple.
type TokenRecord struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ValidUntil   EpochSeconds `json:"valid_until"`
}

// NeedsRefresh reports whether the access token is within margin of expiry.
func (r TokenRecord) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return int64(r.ValidUntil)-int64(margin/time.Second) < now.Unix()
}

// RemainingSeconds returns how long the access token stays valid.
func (r TokenRecord) RemainingSeconds(now time.Time) int64 {
	return int64(r.ValidUntil) - now.Unix()
}

// TokenGrant is the result of a successful token exchange.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// ClientCredentials identify this application to an OAuth provider.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// Session is the sink provider's persisted login session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// BlobStore is the port for the small key-value document store holding
// persisted tokens. Get returns ErrNotFound when key is absent.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// SessionStore persists the sink provider session between runs. LoadSession
// returns nil, nil when no session has been stored yet.
type SessionStore interface {
	LoadSession(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, s Session) error
}

// TokenExchanger trades a refresh token for a new access/refresh pair.
type TokenExchanger interface {
	RefreshToken(ctx context.Context, creds ClientCredentials, refreshToken string) (TokenGrant, error)
}

// ChallengeResponder answers an interactive challenge such as a one-time
// code prompt. Non-interactive deployments use a responder that fails.
type ChallengeResponder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}
