package tdapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// tokenTimestampLayout is the format of StreamerInfo.TokenTimestamp,
// e.g. "2021-04-10T14:35:12+0000".
const tokenTimestampLayout = "2006-01-02T15:04:05-0700"

// UserPrincipal is the subset of the user principals resource the streamer
// login and subscription requests need.
type UserPrincipal struct {
	UserID                   string                   `json:"userId"`
	Accounts                 []Account                `json:"accounts"`
	StreamerInfo             StreamerInfo             `json:"streamerInfo"`
	StreamerSubscriptionKeys StreamerSubscriptionKeys `json:"streamerSubscriptionKeys"`
}

// Account is one brokerage account visible to the user.
type Account struct {
	AccountID         string `json:"accountId"`
	DisplayName       string `json:"displayName"`
	Company           string `json:"company"`
	Segment           string `json:"segment"`
	AccountCdDomainID string `json:"accountCdDomainId"`
}

// StreamerInfo carries the streamer host and its login token.
type StreamerInfo struct {
	StreamerSocketURL string `json:"streamerSocketUrl"`
	Token             string `json:"token"`
	TokenTimestamp    string `json:"tokenTimestamp"`
	UserGroup         string `json:"userGroup"`
	AccessLevel       string `json:"accessLevel"`
	ACL               string `json:"acl"`
	AppID             string `json:"appId"`
}

// StreamerSubscriptionKeys holds the keys for account activity streams.
type StreamerSubscriptionKeys struct {
	Keys []struct {
		Key string `json:"key"`
	} `json:"keys"`
}

// ErrNoAccounts is returned when a principal lists no account, which leaves
// the streamer login without an account id.
var ErrNoAccounts = errors.New("tdapi: user principal has no accounts")

// PrimaryAccount returns the first listed account.
func (p *UserPrincipal) PrimaryAccount() (Account, error) {
	if len(p.Accounts) == 0 {
		return Account{}, ErrNoAccounts
	}

	return p.Accounts[0], nil
}

// SubscriptionKey returns the first streamer subscription key, or "".
func (p *UserPrincipal) SubscriptionKey() string {
	if len(p.StreamerSubscriptionKeys.Keys) == 0 {
		return ""
	}

	return p.StreamerSubscriptionKeys.Keys[0].Key
}

// TokenTime parses the streamer token timestamp.
func (s StreamerInfo) TokenTime() (time.Time, error) {
	t, err := time.Parse(tokenTimestampLayout, s.TokenTimestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("tdapi: parsing token timestamp %q: %w", s.TokenTimestamp, err)
	}

	return t, nil
}

// UserPrincipals fetches the principal with streamer connection info and
// subscription keys included.
func (c *Client) UserPrincipals(ctx context.Context) (*UserPrincipal, error) {
	params := url.Values{"fields": {"streamerSubscriptionKeys,streamerConnectionInfo"}}

	var p UserPrincipal
	if err := c.Do(ctx, http.MethodGet, "userprincipals", params, nil, &p); err != nil {
		return nil, err
	}

	return &p, nil
}
