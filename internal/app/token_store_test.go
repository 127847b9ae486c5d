package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bodysync/internal/app"
	"bodysync/internal/domain"
)

func newStore(t *testing.T, blobs domain.BlobStore, seed app.TokenSeed) *app.TokenStore {
	t.Helper()
	s, err := app.NewTokenStore(blobs, "withings_config.json", "garmin_session.json", seed, nil)
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}
	return s
}

func TestTokenStore_Load_SeedsOnFirstRun(t *testing.T) {
	blobs := newMockBlobStore()
	s := newStore(t, blobs, app.TokenSeed{AccessToken: "a", RefreshToken: "r", ValidUntil: "1700000000"})

	rec, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.AccessToken != "a" || rec.RefreshToken != "r" || rec.ValidUntil != 1700000000 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if blobs.puts != 1 {
		t.Fatalf("expected seed to be persisted once, got %d puts", blobs.puts)
	}

	var persisted map[string]any
	if err := json.Unmarshal(blobs.docs["withings_config.json"], &persisted); err != nil {
		t.Fatalf("persisted document is not json: %v", err)
	}
	if persisted["refresh_token"] != "r" {
		t.Errorf("persisted refresh_token = %v", persisted["refresh_token"])
	}
}

func TestTokenStore_Load_MissingSeed(t *testing.T) {
	tests := []struct {
		name string
		seed app.TokenSeed
	}{
		{"empty", app.TokenSeed{}},
		{"no refresh token", app.TokenSeed{AccessToken: "a", ValidUntil: "1"}},
		{"no valid until", app.TokenSeed{AccessToken: "a", RefreshToken: "r"}},
		{"bad valid until", app.TokenSeed{AccessToken: "a", RefreshToken: "r", ValidUntil: "tomorrow"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blobs := newMockBlobStore()
			_, err := newStore(t, blobs, tc.seed).Load(context.Background())
			if !errors.Is(err, domain.ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
			if blobs.puts != 0 {
				t.Fatal("nothing should be persisted")
			}
		})
	}
}

func TestTokenStore_Load_Existing(t *testing.T) {
	blobs := newMockBlobStore()
	blobs.docs["withings_config.json"] = []byte(`{"access_token":"a","refresh_token":"r","valid_until":"1700000000"}`)
	s := newStore(t, blobs, app.TokenSeed{})

	rec, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ValidUntil != 1700000000 {
		t.Fatalf("ValidUntil = %d", rec.ValidUntil)
	}
	if blobs.puts != 0 {
		t.Fatal("existing document must not be rewritten on load")
	}
}

func TestTokenStore_Load_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{{`},
		{"missing refresh token", `{"access_token":"a","valid_until":1}`},
		{"empty access token", `{"access_token":"","refresh_token":"r","valid_until":1}`},
		{"non numeric valid until", `{"access_token":"a","refresh_token":"r","valid_until":"later"}`},
		{"array", `[]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blobs := newMockBlobStore()
			blobs.docs["withings_config.json"] = []byte(tc.doc)
			_, err := newStore(t, blobs, app.TokenSeed{}).Load(context.Background())
			if !errors.Is(err, domain.ErrPersistence) {
				t.Fatalf("expected ErrPersistence, got %v", err)
			}
		})
	}
}

func TestTokenStore_BackendErrors(t *testing.T) {
	blobs := newMockBlobStore()
	blobs.getFn = func(_ context.Context, _ string) ([]byte, error) { return nil, errors.New("access denied") }
	blobs.putFn = func(_ context.Context, _ string, _ []byte) error { return errors.New("bucket gone") }
	s := newStore(t, blobs, app.TokenSeed{})

	if _, err := s.Load(context.Background()); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence from load, got %v", err)
	}
	if err := s.Save(context.Background(), domain.TokenRecord{AccessToken: "a"}); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence from save, got %v", err)
	}
}

func TestTokenStore_Session(t *testing.T) {
	blobs := newMockBlobStore()
	s := newStore(t, blobs, app.TokenSeed{})
	ctx := context.Background()

	sess, err := s.LoadSession(ctx)
	if err != nil || sess != nil {
		t.Fatalf("expected no session, got %v, %v", sess, err)
	}
	if err := s.SaveSession(ctx, domain.Session{AccessToken: "g", RefreshToken: "gr"}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	sess, err = s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if sess == nil || sess.AccessToken != "g" || sess.RefreshToken != "gr" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}
