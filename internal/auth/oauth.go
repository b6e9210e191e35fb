package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUser is the portion of Google's userinfo response we care about.
type GoogleUser struct {
	ID      string `json:"id"`      // Google's stable account ID
	Email   string `json:"email"`   // verified account email
	Name    string `json:"name"`    // display name
	Picture string `json:"picture"` // avatar URL
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization
// Code flow. The code-for-token exchange runs server to server with the
// client secret, so the access token never reaches the browser.
type GoogleProvider struct {
	config *oauth2.Config

	// userinfoURL is overridable in tests.
	userinfoURL string
}

// NewGoogleProvider creates a provider with the given OAuth credentials.
// callbackURL must exactly match an authorized redirect URI registered in
// the Google Cloud console.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userinfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// AuthURL returns the Google authorization URL for the given CSRF state.
// The caller stores the state in a cookie and verifies it on callback.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a Google user profile: code →
// access token → userinfo endpoint.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(p.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var gUser GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gUser); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if gUser.ID == "" || gUser.Email == "" {
		return nil, fmt.Errorf("auth: Google returned an incomplete user profile")
	}

	return &gUser, nil
}
