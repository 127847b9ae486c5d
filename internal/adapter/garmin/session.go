package garmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"bodysync/internal/domain"

	"golang.org/x/oauth2"
)

// mfaRequired is the OAuth error code the SSO returns when the account has a
// second factor enabled.
const mfaRequired = "mfa_required"

const mfaPrompt = "MFA one-time code: "

// authenticator produces the token source behind the API client. A stored
// session is tried first; a failed refresh falls back to a password login.
type authenticator struct {
	conf      *oauth2.Config
	email     string
	password  string
	sessions  domain.SessionStore
	challenge domain.ChallengeResponder
	base      *http.Client
	logger    *slog.Logger
}

func (a *authenticator) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	// Token refreshes outlive the run that triggered the login.
	bg := context.WithValue(context.Background(), oauth2.HTTPClient, a.base)

	if a.sessions != nil {
		sess, err := a.sessions.LoadSession(ctx)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			tok := sessionToken(*sess)
			ts := a.conf.TokenSource(bg, tok)
			fresh, terr := ts.Token()
			if terr == nil {
				a.logger.Info("garmin session resumed")
				return a.persisting(ctx, ts, fresh, sess.AccessToken)
			}
			a.logger.Warn("stored garmin session unusable, logging in again", "error", terr)
		}
	}

	tok, err := a.login(ctx)
	if err != nil {
		return nil, err
	}
	return a.persisting(ctx, a.conf.TokenSource(bg, tok), tok, "")
}

func (a *authenticator) login(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.base)
	a.logger.Info("logging in to garmin connect")

	tok, err := a.conf.PasswordCredentialsToken(ctx, a.email, a.password)
	if err == nil {
		return tok, nil
	}
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.ErrorCode != mfaRequired {
		return nil, loginError("login", err)
	}

	a.logger.Info("garmin account requires a one-time code")
	if a.challenge == nil {
		return nil, fmt.Errorf("%w: garmin login requires a one-time code and no responder is configured", domain.ErrConfig)
	}
	code, err := a.challenge.Respond(ctx, mfaPrompt)
	if err != nil {
		return nil, err
	}
	tok, err = a.conf.Exchange(ctx, code, oauth2.SetAuthURLParam("username", a.email))
	if err != nil {
		return nil, loginError("mfa", err)
	}
	return tok, nil
}

func loginError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &domain.UpstreamError{Provider: provider, Op: op, Status: re.Response.StatusCode, Body: snippet(re.Body)}
	}
	return fmt.Errorf("%w: garmin %s: %w", domain.ErrUpstream, op, err)
}

func (a *authenticator) save(ctx context.Context, tok *oauth2.Token) error {
	if a.sessions == nil {
		return nil
	}
	return a.sessions.SaveSession(ctx, domain.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
}

// persisting saves current unless it is the session already stored, then
// wraps ts so later refreshes are saved too.
func (a *authenticator) persisting(ctx context.Context, ts oauth2.TokenSource, current *oauth2.Token, stored string) (oauth2.TokenSource, error) {
	if current.AccessToken != stored {
		if err := a.save(ctx, current); err != nil {
			return nil, err
		}
	}
	return &persistingSource{src: ts, last: current.AccessToken, save: a.save, logger: a.logger}, nil
}

func sessionToken(s domain.Session) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
}

// persistingSource stores the session whenever the wrapped source hands out
// a new access token.
type persistingSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	last   string
	save   func(context.Context, *oauth2.Token) error
	logger *slog.Logger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.save(context.Background(), tok); err != nil {
			p.logger.Warn("could not persist refreshed garmin session", "error", err)
		} else {
			p.last = tok.AccessToken
		}
	}
	return tok, nil
}
