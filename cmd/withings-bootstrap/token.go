package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"bodysync/internal/adapter/blobstore"
	"bodysync/internal/adapter/challenge"
	"bodysync/internal/adapter/withings"
	"bodysync/internal/app"
	"bodysync/internal/config"
	"bodysync/internal/domain"

	"github.com/rs/xid"
)

// TokenCmd runs the authorization code flow once.
type TokenCmd struct {
	ClientID    string `long:"client-id" env:"WITHINGS_CLIENT_ID" required:"true" description:"Withings client id"`
	Secret      string `long:"secret" env:"WITHINGS_SECRET" required:"true" description:"Withings client secret"`
	RedirectURI string `long:"redirect-uri" env:"WITHINGS_REDIRECT_URI" default:"http://localhost:8080/callback" description:"Redirect URI registered with the app"`
	APIURL      string `long:"api-url" env:"WITHINGS_API_URL" description:"Withings API base URL"`
	Store       bool   `long:"store" description:"Save the token to TOKEN_STORE_DSN instead of printing it"`

	in  io.Reader
	out io.Writer
	now func() time.Time
}

func (c *TokenCmd) Execute(_ []string) error {
	ctx := context.Background()
	in, out := c.in, c.out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	now := c.now
	if now == nil {
		now = time.Now
	}

	fmt.Fprintf(os.Stderr, "Open this URL, approve access, then copy the code parameter from the redirect:\n\n  %s\n\n",
		withings.AuthCodeURL(c.ClientID, c.RedirectURI, xid.New().String()))

	code, err := challenge.Prompt{In: in, Out: os.Stderr}.Respond(ctx, "Authorization code: ")
	if err != nil {
		return err
	}

	client := withings.New(withings.Options{BaseURL: c.APIURL, Timeout: 30 * time.Second})
	grant, err := client.ExchangeCode(ctx, domain.ClientCredentials{ClientID: c.ClientID, ClientSecret: c.Secret}, code, c.RedirectURI)
	if err != nil {
		return err
	}
	rec := domain.TokenRecord{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ValidUntil:   domain.EpochSeconds(now().Unix() + grant.ExpiresIn),
	}

	if c.Store {
		return storeRecord(ctx, rec)
	}
	return printRecord(out, rec)
}

func printRecord(w io.Writer, rec domain.TokenRecord) error {
	doc, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n\nWITHINGS_ACCESS_TOKEN=%s\nWITHINGS_REFRESH_TOKEN=%s\nWITHINGS_TOKEN_VALID_UNTIL=%s\n",
		doc, rec.AccessToken, rec.RefreshToken, strconv.FormatInt(int64(rec.ValidUntil), 10))
	return err
}

func storeRecord(ctx context.Context, rec domain.TokenRecord) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	backend, err := blobstore.Open(ctx, cfg.TokenStoreDSN)
	if err != nil {
		return err
	}
	defer backend.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	tokens, err := app.NewTokenStore(backend.Blobs, cfg.TokenKey, cfg.SessionKey, app.TokenSeed{}, logger)
	if err != nil {
		return err
	}
	if err := tokens.Save(ctx, rec); err != nil {
		return err
	}
	logger.Info("token stored", "dsn", cfg.TokenStoreDSN, "key", cfg.TokenKey)
	return nil
}
