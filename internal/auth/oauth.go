package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

// Broker OAuth endpoints.
const (
	DefaultTokenURL = "https://api.tdameritrade.com/v1/oauth2/token"
	DefaultAuthURL  = "https://auth.tdameritrade.com/auth"

	// clientIDSuffix is appended to the consumer key on the authorization
	// leg of the flow.
	clientIDSuffix = "@AMER.OAUTHAP"

	grantRefresh = "refresh_token"
	grantCode    = "authorization_code"
)

// tokenEndpoint performs the two grants against the broker's token URL
// through golang.org/x/oauth2.
type tokenEndpoint struct {
	clientID    string
	redirectURI string
	endpoint    oauth2.Endpoint
	httpClient  *http.Client
}

func (t *tokenEndpoint) config(clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: t.redirectURI,
		Endpoint:    t.endpoint,
	}
}

func (t *tokenEndpoint) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, t.httpClient)
}

// authCodeURL builds the URL the Authorizer must visit.
func (t *tokenEndpoint) authCodeURL() string {
	return t.config(t.clientID+clientIDSuffix).AuthCodeURL("", oauth2.AccessTypeOffline)
}

// exchange trades an authorization code for a token pair.
func (t *tokenEndpoint) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := t.config(t.clientID+clientIDSuffix).Exchange(t.withClient(ctx), code, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, wrapGrantError(grantCode, err)
	}

	return tok, nil
}

// refresh trades a refresh token for a new access token. The token handed
// to oauth2 has no access token, so the library always hits the network.
func (t *tokenEndpoint) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := t.config(t.clientID).TokenSource(t.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, wrapGrantError(grantRefresh, err)
	}

	return tok, nil
}

func wrapGrantError(grant string, err error) error {
	refreshErr := &TokenRefreshError{Grant: grant, Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		refreshErr.StatusCode = retrieveErr.Response.StatusCode
	}

	return refreshErr
}

// extraInt reads a numeric extra field from a token response. JSON responses
// decode numbers as float64; form-encoded ones as strings.
func extraInt(tok *oauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}

		return n
	default:
		return 0
	}
}

func extraString(tok *oauth2.Token, key string) string {
	if v, ok := tok.Extra(key).(string); ok {
		return v
	}

	return ""
}

// errMissingAccessToken guards against a 2xx response without a token.
var errMissingAccessToken = fmt.Errorf("auth: token response has no access_token")
