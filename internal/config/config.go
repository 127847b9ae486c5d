// Package config loads runtime settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"bodysync/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// FileEnv names the YAML file holding default settings.
const FileEnv = "BODYSYNC_CONFIG"

const defaultBucket = "withings-garmin-sync-config-bucket"

type Config struct {
	GarminEmail    string
	GarminPassword string
	GarminClientID string
	GarminAPIURL   string
	GarminSSOURL   string

	WithingsClientID     string
	WithingsSecret       string
	WithingsAccessToken  string
	WithingsRefreshToken string
	WithingsValidUntil   string
	WithingsAPIURL       string

	TokenStoreDSN string
	TokenKey      string
	SessionKey    string
	LedgerDSN     string

	Location      *time.Location
	Lookback      time.Duration
	Mode          domain.Mode
	Weights       domain.WeightRange
	RefreshMargin time.Duration
	HTTPTimeout   time.Duration

	Addr             string
	TriggerTokenHash string
	LogLevel         slog.Level
}

// Load reads the file named by BODYSYNC_CONFIG, if any, then the environment.
// Every failure wraps domain.ErrConfig.
func Load() (*Config, error) {
	file := map[string]string{}
	if path := os.Getenv(FileEnv); path != "" {
		var err error
		if file, err = readFile(path); err != nil {
			return nil, err
		}
	}
	return load(func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return file[key]
	})
}

// readFile parses a flat YAML mapping keyed by environment variable name.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfig, path, err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrConfig, path, err)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out, nil
}

func load(get func(string) string) (*Config, error) {
	getenv := func(key, def string) string {
		if v := strings.TrimSpace(get(key)); v != "" {
			return v
		}
		return def
	}

	bucket := getenv("BUCKET_NAME", defaultBucket)
	c := &Config{
		GarminEmail:    getenv("GARMIN_CONNECT_EMAIL", ""),
		GarminPassword: get("GARMIN_CONNECT_PASSWORD"),
		GarminClientID: getenv("GARMIN_CLIENT_ID", "garmin-connect"),
		GarminAPIURL:   getenv("GARMIN_API_URL", ""),
		GarminSSOURL:   getenv("GARMIN_SSO_URL", ""),

		WithingsClientID:     getenv("WITHINGS_CLIENT_ID", ""),
		WithingsSecret:       getenv("WITHINGS_SECRET", ""),
		WithingsAccessToken:  getenv("WITHINGS_ACCESS_TOKEN", ""),
		WithingsRefreshToken: getenv("WITHINGS_REFRESH_TOKEN", ""),
		WithingsValidUntil:   getenv("WITHINGS_TOKEN_VALID_UNTIL", ""),
		WithingsAPIURL:       getenv("WITHINGS_API_URL", ""),

		TokenStoreDSN: getenv("TOKEN_STORE_DSN", "s3://"+bucket),
		TokenKey:      getenv("TOKEN_KEY", "withings_config.json"),
		SessionKey:    getenv("SESSION_KEY", "garmin_session.json"),
		LedgerDSN:     getenv("LEDGER_DSN", ""),

		Addr:             getenv("ADDR", ":8080"),
		TriggerTokenHash: getenv("TRIGGER_TOKEN_HASH", ""),
	}

	var errs []error
	var err error

	if c.Location, err = time.LoadLocation(getenv("SYNC_TIMEZONE", "Europe/Berlin")); err != nil {
		errs = append(errs, fmt.Errorf("SYNC_TIMEZONE: %w", err))
	}
	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SYNC_LOOKBACK", "720h", &c.Lookback},
		{"REFRESH_MARGIN", "100s", &c.RefreshMargin},
		{"HTTP_TIMEOUT", "30s", &c.HTTPTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenv(d.key, d.def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive", d.key))
			continue
		}
		*d.dst = v
	}

	replace, err := strconv.ParseBool(getenv("REPLACE_EXISTING", "false"))
	if err != nil {
		errs = append(errs, fmt.Errorf("REPLACE_EXISTING: %w", err))
	}
	if replace {
		c.Mode = domain.ReplaceExisting
	}

	if c.Weights.Min, err = strconv.ParseFloat(getenv("MIN_WEIGHT_KG", "50"), 64); err != nil {
		errs = append(errs, fmt.Errorf("MIN_WEIGHT_KG: %w", err))
	}
	if c.Weights.Max, err = strconv.ParseFloat(getenv("MAX_WEIGHT_KG", "100"), 64); err != nil {
		errs = append(errs, fmt.Errorf("MAX_WEIGHT_KG: %w", err))
	}
	if c.Weights.Min >= c.Weights.Max {
		errs = append(errs, fmt.Errorf("MIN_WEIGHT_KG (%g) must be below MAX_WEIGHT_KG (%g)", c.Weights.Min, c.Weights.Max))
	}

	if err := c.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if c.TriggerTokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.TriggerTokenHash)); err != nil {
			errs = append(errs, fmt.Errorf("TRIGGER_TOKEN_HASH: %w", err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, errors.Join(errs...))
	}
	return c, nil
}

// RequireSink reports a missing sink account.
func (c *Config) RequireSink() error {
	var missing []string
	if c.GarminEmail == "" {
		missing = append(missing, "GARMIN_CONNECT_EMAIL")
	}
	if c.GarminPassword == "" {
		missing = append(missing, "GARMIN_CONNECT_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set", domain.ErrConfig, strings.Join(missing, " and "))
	}
	return nil
}

// Credentials returns the source OAuth client credentials.
func (c *Config) Credentials() domain.ClientCredentials {
	return domain.ClientCredentials{ClientID: c.WithingsClientID, ClientSecret: c.WithingsSecret}
}
