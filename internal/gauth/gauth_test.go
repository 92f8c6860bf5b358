package gauth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"invoicer/internal/invoice"
)

func TestHTTPClientWithoutCredentials(t *testing.T) {
	_, err := HTTPClient(context.Background(), Credentials{})
	if !errors.Is(err, invoice.ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestHTTPClientMissingToken(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "client_secret.json")
	const installed = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"s",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(secret, []byte(installed), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := HTTPClient(context.Background(), Credentials{
		ClientSecretFile: secret,
		TokenFile:        filepath.Join(dir, "token.json"),
	}, "https://www.googleapis.com/auth/drive.file")
	if !errors.Is(err, invoice.ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestHTTPClientBadServiceAccount(t *testing.T) {
	_, err := HTTPClient(context.Background(), Credentials{ServiceAccountJSON: `{"type":"nonsense"}`})
	if err == nil || errors.Is(err, invoice.ErrMissingCredentials) {
		t.Fatalf("err = %v, want a parse error", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := SaveToken(path, want); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("token = %+v", got)
	}
}

type sequenceSource struct {
	tokens []string
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	tok := &oauth2.Token{AccessToken: s.tokens[s.i]}
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestSavingTokenSourcePersistsRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	ts := &savingTokenSource{
		base: &sequenceSource{tokens: []string{"old", "new"}},
		path: path,
		last: "old",
		log:  zerolog.Nop(),
	}

	if _, err := ts.Token(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unchanged token was written: %v", err)
	}

	if _, err := ts.Token(); err != nil {
		t.Fatal(err)
	}
	got, err := LoadToken(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "new" {
		t.Errorf("saved token = %q, want new", got.AccessToken)
	}
}
