package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bodysync/internal/domain"
)

// DefaultRefreshMargin is how long before expiry a token is refreshed.
const DefaultRefreshMargin = 100 * time.Second

// TokenRefresher decides whether a token record needs refreshing and, if so,
// exchanges its refresh token. It never persists; the caller does.
type TokenRefresher struct {
	exchanger domain.TokenExchanger
	creds     domain.ClientCredentials
	margin    time.Duration
	logger    *slog.Logger
}

// NewTokenRefresher creates a TokenRefresher. A non-positive margin selects
// DefaultRefreshMargin.
func NewTokenRefresher(exchanger domain.TokenExchanger, creds domain.ClientCredentials, margin time.Duration, logger *slog.Logger) *TokenRefresher {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenRefresher{exchanger: exchanger, creds: creds, margin: margin, logger: logger}
}

// EnsureFresh returns rec unchanged while it is valid beyond the margin.
// Otherwise it returns the refreshed record and true.
func (r *TokenRefresher) EnsureFresh(ctx context.Context, rec domain.TokenRecord, now time.Time) (domain.TokenRecord, bool, error) {
	if !rec.NeedsRefresh(now, r.margin) {
		r.logger.Info("token still valid", "seconds", rec.RemainingSeconds(now))
		return rec, false, nil
	}
	if r.creds.ClientID == "" || r.creds.ClientSecret == "" {
		return rec, false, fmt.Errorf("%w: WITHINGS_CLIENT_ID and WITHINGS_SECRET are required to refresh the token", domain.ErrConfig)
	}

	r.logger.Info("token expired, refreshing")
	grant, err := r.exchanger.RefreshToken(ctx, r.creds, rec.RefreshToken)
	if err != nil {
		return rec, false, err
	}
	if grant.AccessToken == "" || grant.RefreshToken == "" || grant.ExpiresIn <= 0 {
		return rec, false, fmt.Errorf("%w: token refresh response is missing access_token, refresh_token or expires_in", domain.ErrProtocol)
	}
	return domain.TokenRecord{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ValidUntil:   domain.EpochSeconds(now.Unix() + grant.ExpiresIn),
	}, true, nil
}
