// Package app holds the application services and sync logic.
package app

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"bodysync/internal/domain"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/token_record.json
var tokenRecordSchema []byte

// TokenSeed holds the first-run token values taken from the environment.
type TokenSeed struct {
	AccessToken  string
	RefreshToken string
	ValidUntil   string
}

// TokenStore loads and saves the source token record and the sink session
// in a BlobStore under fixed keys.
type TokenStore struct {
	blobs      domain.BlobStore
	tokenKey   string
	sessionKey string
	seed       TokenSeed
	schema     *jsonschema.Schema
	logger     *slog.Logger
}

// NewTokenStore creates a TokenStore. The seed is only consulted when no
// token document exists yet.
func NewTokenStore(blobs domain.BlobStore, tokenKey, sessionKey string, seed TokenSeed, logger *slog.Logger) (*TokenStore, error) {
	sch, err := compileTokenSchema()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		blobs:      blobs,
		tokenKey:   tokenKey,
		sessionKey: sessionKey,
		seed:       seed,
		schema:     sch,
		logger:     logger,
	}, nil
}

func compileTokenSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(tokenRecordSchema))
	if err != nil {
		return nil, fmt.Errorf("token schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("token_record.json", doc); err != nil {
		return nil, fmt.Errorf("token schema: %w", err)
	}
	return c.Compile("token_record.json")
}

// Load returns the persisted token record, seeding it from the environment
// values on first run.
func (s *TokenStore) Load(ctx context.Context) (domain.TokenRecord, error) {
	data, err := s.blobs.Get(ctx, s.tokenKey)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("no persisted token document, seeding from environment", "key", s.tokenKey)
		return s.seedRecord(ctx)
	}
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("%w: load %s: %w", domain.ErrPersistence, s.tokenKey, err)
	}
	return s.decode(data)
}

func (s *TokenStore) decode(data []byte) (domain.TokenRecord, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("%w: %s is not valid json: %w", domain.ErrPersistence, s.tokenKey, err)
	}
	if err := s.schema.Validate(inst); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, s.tokenKey, err)
	}
	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, s.tokenKey, err)
	}
	return rec, nil
}

func (s *TokenStore) seedRecord(ctx context.Context) (domain.TokenRecord, error) {
	seed := s.seed
	if strings.TrimSpace(seed.AccessToken) == "" || strings.TrimSpace(seed.RefreshToken) == "" || strings.TrimSpace(seed.ValidUntil) == "" {
		return domain.TokenRecord{}, fmt.Errorf("%w: WITHINGS_ACCESS_TOKEN, WITHINGS_REFRESH_TOKEN and WITHINGS_TOKEN_VALID_UNTIL are required on first run", domain.ErrConfig)
	}
	validUntil, err := strconv.ParseInt(strings.TrimSpace(seed.ValidUntil), 10, 64)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("%w: WITHINGS_TOKEN_VALID_UNTIL: %w", domain.ErrConfig, err)
	}
	rec := domain.TokenRecord{
		AccessToken:  strings.TrimSpace(seed.AccessToken),
		RefreshToken: strings.TrimSpace(seed.RefreshToken),
		ValidUntil:   domain.EpochSeconds(validUntil),
	}
	if err := s.Save(ctx, rec); err != nil {
		return domain.TokenRecord{}, err
	}
	return rec, nil
}

// Save overwrites the token document.
func (s *TokenStore) Save(ctx context.Context, rec domain.TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode token: %w", domain.ErrPersistence, err)
	}
	if err := s.blobs.Put(ctx, s.tokenKey, data); err != nil {
		return fmt.Errorf("%w: save %s: %w", domain.ErrPersistence, s.tokenKey, err)
	}
	return nil
}

// LoadSession returns the persisted sink session, or nil when none exists.
func (s *TokenStore) LoadSession(ctx context.Context) (*domain.Session, error) {
	data, err := s.blobs.Get(ctx, s.sessionKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", domain.ErrPersistence, s.sessionKey, err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrPersistence, s.sessionKey, err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s has no access_token", domain.ErrPersistence, s.sessionKey)
	}
	return &sess, nil
}

// SaveSession overwrites the sink session document.
func (s *TokenStore) SaveSession(ctx context.Context, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: encode session: %w", domain.ErrPersistence, err)
	}
	if err := s.blobs.Put(ctx, s.sessionKey, data); err != nil {
		return fmt.Errorf("%w: save %s: %w", domain.ErrPersistence, s.sessionKey, err)
	}
	return nil
}

var _ domain.SessionStore = (*TokenStore)(nil)
