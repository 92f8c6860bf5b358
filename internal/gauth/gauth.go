// Package gauth builds authorised HTTP clients for the Google APIs used for
// delivery (Drive, Gmail, Sheets).
//
// Two credential sources are supported. An installed-app OAuth client
// secret plus a stored user token is preferred, since Gmail sends as the
// user. A service account key is used otherwise; Subject then names the
// user to impersonate through domain-wide delegation.
package gauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
)

// Credentials names where credentials come from. Paths may be empty.
type Credentials struct {
	ClientSecretFile string
	TokenFile        string

	ServiceAccountJSON string
	ServiceAccountFile string
	Subject            string
}

// HasUserToken reports whether the OAuth user flow is configured.
func (c Credentials) HasUserToken() bool {
	return c.ClientSecretFile != "" && c.TokenFile != ""
}

// HTTPClient returns a client authorised for scopes.
func HTTPClient(ctx context.Context, creds Credentials, scopes ...string) (*http.Client, error) {
	const op = "gauth.HTTPClient"
	log := logger.WithComponent("gauth")

	if creds.HasUserToken() {
		cfg, err := OAuthConfig(creds, scopes...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tok, err := LoadToken(creds.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w (run the auth command first)", op, err)
		}
		ts := &savingTokenSource{
			base: cfg.TokenSource(ctx, tok),
			path: creds.TokenFile,
			last: tok.AccessToken,
			log:  log,
		}
		log.Debug().Str("token_file", creds.TokenFile).Msg("Using OAuth user token")
		return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
	}

	key := []byte(creds.ServiceAccountJSON)
	if len(key) == 0 && creds.ServiceAccountFile != "" {
		var err error
		key, err = os.ReadFile(creds.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%s: %w", op, invoice.ErrMissingCredentials)
	}

	jwt, err := google.JWTConfigFromJSON(key, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}
	jwt.Subject = creds.Subject
	log.Debug().Str("email", jwt.Email).Str("subject", jwt.Subject).Msg("Using service account")
	return jwt.Client(ctx), nil
}

// OAuthConfig reads the installed-app client secret.
func OAuthConfig(creds Credentials, scopes ...string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(creds.ClientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}
	return cfg, nil
}

// Exchange trades an authorisation code for a token and stores it.
func Exchange(ctx context.Context, cfg *oauth2.Config, code, tokenFile string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorisation code: %w", err)
	}
	if err := SaveToken(tokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: token file %s does not exist", invoice.ErrMissingCredentials, path)
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, fmt.Errorf("failed to parse token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// savingTokenSource persists refreshed tokens.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			s.log.Warn().Err(err).Msg("Failed to persist refreshed token")
		} else {
			s.last = tok.AccessToken
			s.log.Debug().Time("expiry", tok.Expiry).Msg("Refreshed token saved")
		}
	}
	return tok, nil
}
