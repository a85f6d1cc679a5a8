package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Connect builds an authenticated Drive service from the config. A
// service account key is preferred; otherwise the OAuth client
// credentials and stored token pair is used. Tokens must already exist:
// there is no interactive consent flow in a long-running sync process.
func Connect(ctx context.Context, cfg Config) (*drive.Service, error) {
	if cfg.ServiceAccountFile != "" {
		svc, err := drive.NewService(ctx,
			option.WithCredentialsFile(cfg.ServiceAccountFile),
			option.WithScopes(drive.DriveReadonlyScope),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create drive service from service account: %w", err)
		}
		return svc, nil
	}

	ts, err := tokenSourceFromFiles(ctx, cfg.CredentialsFile, cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, nil
}

// tokenSourceFromFiles loads OAuth client credentials and a stored
// token, returning a self-refreshing token source.
func tokenSourceFromFiles(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", credentialsFile, err)
	}

	conf, err := google.ConfigFromJSON(credentials, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load token file %s (run the authorisation flow first): %w", tokenFile, err)
	}

	return conf.TokenSource(ctx, token), nil
}

// tokenFromFile reads a stored oauth2 token.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return token, nil
}
