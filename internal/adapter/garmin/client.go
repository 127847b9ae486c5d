// Package garmin implements domain.SinkClient against the Garmin Connect
// weight service.
package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"bodysync/internal/domain"

	"golang.org/x/oauth2"
)

const (
	defaultAPIURL   = "https://connectapi.garmin.com"
	defaultSSOURL   = "https://sso.garmin.com"
	defaultClientID = "garmin-connect"
	provider        = "garmin"

	// localLayout is the sink's timestamp format, without zone.
	localLayout = "2006-01-02T15:04:05.00"
)

// Options configures a Client.
type Options struct {
	APIURL     string
	SSOURL     string
	ClientID   string
	Email      string
	Password   string
	HTTPClient *http.Client
	Timeout    time.Duration
	// Sessions persists the login between runs. Optional.
	Sessions domain.SessionStore
	// Challenge answers the one-time code prompt. Optional.
	Challenge domain.ChallengeResponder
	Logger    *slog.Logger
}

// Client is an authenticated Garmin Connect client. Login happens lazily on
// the first call.
type Client struct {
	apiURL string
	auth   *authenticator

	mu  sync.Mutex
	api *http.Client
}

var _ domain.SinkClient = (*Client)(nil)

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Email) == "" || opts.Password == "" {
		return nil, fmt.Errorf("%w: garmin email and password are required", domain.ErrConfig)
	}
	apiURL := strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	ssoURL := strings.TrimRight(strings.TrimSpace(opts.SSOURL), "/")
	if ssoURL == "" {
		ssoURL = defaultSSOURL
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	base := opts.HTTPClient
	if base == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		base = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiURL: apiURL,
		auth: &authenticator{
			conf: &oauth2.Config{
				ClientID: clientID,
				Endpoint: oauth2.Endpoint{
					AuthURL:   ssoURL + "/sso/signin",
					TokenURL:  ssoURL + "/sso/oauth2/token",
					AuthStyle: oauth2.AuthStyleInParams,
				},
			},
			email:     opts.Email,
			password:  opts.Password,
			sessions:  opts.Sessions,
			challenge: opts.Challenge,
			base:      base,
			logger:    logger,
		},
	}, nil
}

func (c *Client) client(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	ts, err := c.auth.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	c.api = &http.Client{
		Timeout:   c.auth.base.Timeout,
		Transport: &oauth2.Transport{Source: ts, Base: c.auth.base.Transport},
	}
	return c.api, nil
}

type weightRange struct {
	DailyWeightSummaries *[]struct {
		SummaryDate string `json:"summaryDate"`
	} `json:"dailyWeightSummaries"`
}

// ListRecordedDays returns the days between startDay and endDay that already
// hold a weigh-in.
func (c *Client) ListRecordedDays(ctx context.Context, startDay, endDay string) ([]string, error) {
	path := fmt.Sprintf("/weight-service/weight/range/%s/%s?includeAll=true", url.PathEscape(startDay), url.PathEscape(endDay))
	var body weightRange
	if err := c.do(ctx, http.MethodGet, path, "list weigh-ins", nil, &body); err != nil {
		return nil, err
	}
	if body.DailyWeightSummaries == nil {
		return nil, fmt.Errorf("%w: garmin list weigh-ins: response lacks dailyWeightSummaries", domain.ErrProtocol)
	}
	days := make([]string, 0, len(*body.DailyWeightSummaries))
	for _, s := range *body.DailyWeightSummaries {
		if s.SummaryDate == "" {
			return nil, fmt.Errorf("%w: garmin list weigh-ins: summary lacks summaryDate", domain.ErrProtocol)
		}
		days = append(days, s.SummaryDate)
	}
	return days, nil
}

type dayView struct {
	DateWeightList *[]struct {
		SamplePK *int64 `json:"samplePk"`
	} `json:"dateWeightList"`
}

// DeleteDay removes every weigh-in recorded on day.
func (c *Client) DeleteDay(ctx context.Context, day string) error {
	var view dayView
	path := fmt.Sprintf("/weight-service/weight/dayview/%s?includeAll=true", url.PathEscape(day))
	if err := c.do(ctx, http.MethodGet, path, "day view", nil, &view); err != nil {
		return err
	}
	if view.DateWeightList == nil {
		return fmt.Errorf("%w: garmin day view: response lacks dateWeightList", domain.ErrProtocol)
	}
	for _, w := range *view.DateWeightList {
		if w.SamplePK == nil {
			return fmt.Errorf("%w: garmin day view: entry lacks samplePk", domain.ErrProtocol)
		}
		path := fmt.Sprintf("/weight-service/weight/%s/byversion/%s", url.PathEscape(day), strconv.FormatInt(*w.SamplePK, 10))
		if err := c.do(ctx, http.MethodDelete, path, "delete weigh-in", nil, nil); err != nil {
			return err
		}
	}
	return nil
}

type weighIn struct {
	DateTimestamp string   `json:"dateTimestamp"`
	GMTTimestamp  string   `json:"gmtTimestamp"`
	UnitKey       string   `json:"unitKey"`
	SourceType    string   `json:"sourceType"`
	Value         float64  `json:"value"`
	MuscleMass    *float64 `json:"muscleMass,omitempty"`
	BodyWater     *float64 `json:"bodyWater,omitempty"`
	BodyFat       *float64 `json:"bodyFat,omitempty"`
	BoneMass      *float64 `json:"boneMass,omitempty"`
	VisceralFat   *float64 `json:"visceralFat,omitempty"`
	FatFreeMass   *float64 `json:"fatFreeMass,omitempty"`
	FatMass       *float64 `json:"fatMass,omitempty"`
}

func newWeighIn(timestamp string, kg float64) (weighIn, error) {
	t, err := time.Parse(domain.ISOLayout, timestamp)
	if err != nil {
		return weighIn{}, fmt.Errorf("%w: garmin timestamp %q: %w", domain.ErrData, timestamp, err)
	}
	return weighIn{
		DateTimestamp: t.Format(localLayout),
		GMTTimestamp:  t.UTC().Format(localLayout),
		UnitKey:       "kg",
		SourceType:    "MANUAL",
		Value:         kg,
	}, nil
}

// AddWeighIn records a weight-only entry at timestamp.
func (c *Client) AddWeighIn(ctx context.Context, timestamp string, weightKg float64) error {
	payload, err := newWeighIn(timestamp, weightKg)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/weight-service/user-weight", "add weigh-in", payload, nil)
}

// AddBodyComposition records a weigh-in with the full composition.
func (c *Client) AddBodyComposition(ctx context.Context, timestamp string, bc domain.BodyComposition) error {
	payload, err := newWeighIn(timestamp, bc.WeightKg)
	if err != nil {
		return err
	}
	payload.MuscleMass = &bc.MuscleMass
	payload.BodyWater = &bc.HydrationPercent
	payload.BodyFat = &bc.FatRatioPercent
	payload.BoneMass = &bc.BoneMass
	payload.VisceralFat = &bc.VisceralFatRating
	payload.FatFreeMass = bc.FatFreeMass
	payload.FatMass = bc.FatMassWeight
	return c.do(ctx, http.MethodPost, "/weight-service/user-weight", "add body composition", payload, nil)
}

func (c *Client) do(ctx context.Context, method, path, op string, in, out any) error {
	hc, err := c.client(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("garmin %s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("garmin %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: garmin %s: %w", domain.ErrUpstream, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: garmin %s: read body: %w", domain.ErrUpstream, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.UpstreamError{Provider: provider, Op: op, Status: resp.StatusCode, Body: snippet(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: garmin %s: %w", domain.ErrProtocol, op, err)
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
