// Package withings implements the source provider ports against the Withings
// public API.
package withings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bodysync/internal/domain"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://wbsapi.withings.net"
	authorizeURL   = "https://account.withings.com/oauth2_user/authorize2"
	provider       = "withings"
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the Withings token and measure endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

var (
	_ domain.TokenExchanger = (*Client)(nil)
	_ domain.MeasureSource  = (*Client)(nil)
)

// envelope wraps every Withings response. A zero status means success.
type envelope struct {
	Status *int            `json:"status"`
	Body   json.RawMessage `json:"body"`
	Error  string          `json:"error"`
}

type tokenBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    *int64 `json:"expires_in"`
}

// RefreshToken performs the refresh_token grant.
func (c *Client) RefreshToken(ctx context.Context, creds domain.ClientCredentials, refreshToken string) (domain.TokenGrant, error) {
	form := url.Values{
		"action":        {"requesttoken"},
		"grant_type":    {"refresh_token"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"refresh_token": {refreshToken},
	}
	return c.requestToken(ctx, "refresh token", form)
}

// ExchangeCode performs the authorization_code grant used once at bootstrap.
func (c *Client) ExchangeCode(ctx context.Context, creds domain.ClientCredentials, code, redirectURI string) (domain.TokenGrant, error) {
	form := url.Values{
		"action":        {"requesttoken"},
		"grant_type":    {"authorization_code"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}
	return c.requestToken(ctx, "exchange code", form)
}

func (c *Client) requestToken(ctx context.Context, op string, form url.Values) (domain.TokenGrant, error) {
	var body tokenBody
	if err := c.post(ctx, c.httpClient, "/v2/oauth2", op, form, &body); err != nil {
		return domain.TokenGrant{}, err
	}
	if body.AccessToken == "" || body.RefreshToken == "" || body.ExpiresIn == nil {
		return domain.TokenGrant{}, fmt.Errorf("%w: withings %s: response lacks access_token, refresh_token or expires_in", domain.ErrProtocol, op)
	}
	return domain.TokenGrant{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresIn:    *body.ExpiresIn,
	}, nil
}

type measureBody struct {
	MeasureGrps *[]domain.RawMeasureGroup `json:"measuregrps"`
}

// GetMeasureGroups queries real (non-objective) measurement groups between
// since and until. A single call; no pagination.
func (c *Client) GetMeasureGroups(ctx context.Context, accessToken string, since, until time.Time) ([]domain.RawMeasureGroup, error) {
	types := make([]string, 0, len(domain.RequestedTypes))
	for _, t := range domain.RequestedTypes {
		types = append(types, strconv.Itoa(int(t)))
	}
	form := url.Values{
		"action":    {"getmeas"},
		"meastypes": {strings.Join(types, ",")},
		"category":  {"1"},
	}
	if !since.IsZero() {
		form.Set("startdate", strconv.FormatInt(since.Unix(), 10))
	}
	if !until.IsZero() {
		form.Set("enddate", strconv.FormatInt(until.Unix(), 10))
	}

	var body measureBody
	if err := c.post(ctx, c.bearerClient(accessToken), "/measure", "getmeas", form, &body); err != nil {
		return nil, err
	}
	if body.MeasureGrps == nil {
		return nil, fmt.Errorf("%w: withings getmeas: response lacks measuregrps", domain.ErrProtocol)
	}
	return *body.MeasureGrps, nil
}

// bearerClient returns an http.Client that sends accessToken on every request.
func (c *Client) bearerClient(accessToken string) *http.Client {
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
	}
}

func (c *Client) post(ctx context.Context, hc *http.Client, path, op string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("withings %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: withings %s: %w", domain.ErrUpstream, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: withings %s: read body: %w", domain.ErrUpstream, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.UpstreamError{Provider: provider, Op: op, Status: resp.StatusCode, Body: snippet(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: withings %s: %w", domain.ErrProtocol, op, err)
	}
	if env.Status == nil {
		return fmt.Errorf("%w: withings %s: response lacks status", domain.ErrProtocol, op)
	}
	if *env.Status != 0 {
		return &domain.UpstreamError{Provider: provider, Op: op, Status: *env.Status, Body: env.Error}
	}
	if len(env.Body) == 0 || string(env.Body) == "null" {
		return fmt.Errorf("%w: withings %s: response lacks body", domain.ErrProtocol, op)
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return fmt.Errorf("%w: withings %s: %w", domain.ErrProtocol, op, err)
	}
	return nil
}

func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// AuthCodeURL returns the consent page URL for the one-time bootstrap.
func AuthCodeURL(clientID, redirectURI, state string) string {
	conf := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		// Withings expects a comma separated scope list in a single parameter.
		Scopes:   []string{"user.info,user.metrics,user.activity"},
		Endpoint: oauth2.Endpoint{AuthURL: authorizeURL},
	}
	return conf.AuthCodeURL(state)
}
