package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bodysync/internal/app"
	"bodysync/internal/domain"
)

var creds = domain.ClientCredentials{ClientID: "id", ClientSecret: "secret"}

func TestEnsureFresh_Boundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name          string
		validUntil    int64
		wantRefreshed bool
	}{
		{"expires in 99s", now.Unix() + 99, true},
		{"expires in 101s", now.Unix() + 101, false},
		{"expired", now.Unix() - 1000, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ex := &mockExchanger{}
			r := app.NewTokenRefresher(ex, creds, 100*time.Second, nil)
			rec := domain.TokenRecord{AccessToken: "old", RefreshToken: "old-r", ValidUntil: domain.EpochSeconds(tc.validUntil)}

			got, refreshed, err := r.EnsureFresh(context.Background(), rec, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if refreshed != tc.wantRefreshed {
				t.Fatalf("refreshed = %v; want %v", refreshed, tc.wantRefreshed)
			}
			if !refreshed {
				if got != rec || ex.calls != 0 {
					t.Fatal("valid record must be returned unchanged without an exchange")
				}
				return
			}
			if got.AccessToken != "new-access" || got.RefreshToken != "new-refresh" {
				t.Errorf("unexpected record: %+v", got)
			}
			if int64(got.ValidUntil) != now.Unix()+10800 {
				t.Errorf("ValidUntil = %d; want now+expires_in", got.ValidUntil)
			}
		})
	}
}

func TestEnsureFresh_PassesRefreshToken(t *testing.T) {
	var gotToken string
	var gotCreds domain.ClientCredentials
	ex := &mockExchanger{refreshFn: func(_ context.Context, c domain.ClientCredentials, rt string) (domain.TokenGrant, error) {
		gotCreds, gotToken = c, rt
		return domain.TokenGrant{AccessToken: "a", RefreshToken: "b", ExpiresIn: 60}, nil
	}}
	r := app.NewTokenRefresher(ex, creds, 0, nil)
	if _, _, err := r.EnsureFresh(context.Background(), domain.TokenRecord{RefreshToken: "rt"}, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotToken != "rt" || gotCreds != creds {
		t.Fatalf("exchange got %q, %+v", gotToken, gotCreds)
	}
}

func TestEnsureFresh_MissingCredentials(t *testing.T) {
	ex := &mockExchanger{}
	r := app.NewTokenRefresher(ex, domain.ClientCredentials{ClientID: "id"}, 0, nil)
	_, _, err := r.EnsureFresh(context.Background(), domain.TokenRecord{}, time.Now())
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if ex.calls != 0 {
		t.Fatal("no exchange should be attempted without credentials")
	}
}

func TestEnsureFresh_UpstreamError(t *testing.T) {
	ex := &mockExchanger{refreshFn: func(_ context.Context, _ domain.ClientCredentials, _ string) (domain.TokenGrant, error) {
		return domain.TokenGrant{}, &domain.UpstreamError{Provider: "withings", Op: "refresh", Status: 401}
	}}
	r := app.NewTokenRefresher(ex, creds, 0, nil)
	_, refreshed, err := r.EnsureFresh(context.Background(), domain.TokenRecord{}, time.Now())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if refreshed || ex.calls != 1 {
		t.Fatalf("expected a single attempt without retry, got %d", ex.calls)
	}
}

func TestEnsureFresh_IncompleteGrant(t *testing.T) {
	ex := &mockExchanger{refreshFn: func(_ context.Context, _ domain.ClientCredentials, _ string) (domain.TokenGrant, error) {
		return domain.TokenGrant{AccessToken: "a"}, nil
	}}
	r := app.NewTokenRefresher(ex, creds, 0, nil)
	_, _, err := r.EnsureFresh(context.Background(), domain.TokenRecord{}, time.Now())
	if !errors.Is(err, domain.ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}
