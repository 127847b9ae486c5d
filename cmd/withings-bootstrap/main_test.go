package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenCmd_PrintsRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		_, _ = w.Write([]byte(`{"status":0,"body":{"access_token":"a","refresh_token":"r","expires_in":10800}}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := &TokenCmd{
		ClientID:    "cid",
		Secret:      "secret",
		RedirectURI: "http://localhost:8080/callback",
		APIURL:      srv.URL,
		in:          strings.NewReader("the-code\n"),
		out:         &out,
		now:         func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
	require.NoError(t, cmd.Execute(nil))
	assert.Contains(t, out.String(), `"valid_until": 1700010800`)
	assert.Contains(t, out.String(), "WITHINGS_REFRESH_TOKEN=r\n")
	assert.Contains(t, out.String(), "WITHINGS_TOKEN_VALID_UNTIL=1700010800\n")
}

func TestHashTriggerCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := &HashTriggerCmd{Cost: bcrypt.MinCost, in: strings.NewReader("s3cret\n"), out: &out}
	require.NoError(t, cmd.Execute(nil))

	line := strings.TrimSpace(out.String())
	hash, ok := strings.CutPrefix(line, "TRIGGER_TOKEN_HASH=")
	require.True(t, ok, line)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
