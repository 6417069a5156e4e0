package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// SSOProfile is the identity returned by a provider after code exchange.
type SSOProfile struct {
	Email       string
	DisplayName string
	AvatarURL   *string
}

// SSOProvider describes one supported identity provider: its OAuth endpoints
// and how to fetch the authenticated user's profile.
type SSOProvider struct {
	Name     string
	Endpoint oauth2.Endpoint

	// FetchProfile retrieves the user profile with a client that carries the
	// exchanged token.
	FetchProfile func(ctx context.Context, client *http.Client) (*SSOProfile, error)
}

// errUnknownProvider is returned for provider names not in the registry.
var errUnknownProvider = errors.New("unknown sso provider")

var ssoProviders = map[string]*SSOProvider{
	"lineworks": {
		Name: "lineworks",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://auth.worksmobile.com/oauth2/v2.0/authorize",
			TokenURL: "https://auth.worksmobile.com/oauth2/v2.0/token",
		},
		FetchProfile: fetchLineWorksProfile,
	},
}

// LookupSSOProvider returns the registered provider for name.
func LookupSSOProvider(name string) (*SSOProvider, error) {
	provider, ok := ssoProviders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownProvider, name)
	}
	return provider, nil
}

func fetchLineWorksProfile(ctx context.Context, client *http.Client) (*SSOProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.worksapis.com/v1.0/users/me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Email    string `json:"email"`
		UserName struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"userName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	if body.Email == "" {
		return nil, errors.New("profile has no email")
	}

	displayName := strings.TrimSpace(body.UserName.LastName + " " + body.UserName.FirstName)
	if displayName == "" {
		displayName = body.Email
	}

	return &SSOProfile{
		Email:       body.Email,
		DisplayName: displayName,
	}, nil
}
