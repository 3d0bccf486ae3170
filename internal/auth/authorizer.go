package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

// LoginCredentials are the account secrets an interactive Authorizer may
// need. The store passes them through untouched and never logs them.
type LoginCredentials struct {
	Username string
	Password string
	// SecurityAnswers maps a security question to its answer.
	SecurityAnswers map[string]string
}

// AuthorizationRequest is everything an Authorizer needs to drive the
// broker's login page to an authorization code.
type AuthorizationRequest struct {
	ClientID    string
	RedirectURI string
	// AuthURL is the fully built authorization URL to visit.
	AuthURL string
	Login   LoginCredentials
}

// Authorizer obtains a fresh authorization code. It is invoked only when no
// usable refresh token exists, always while the app lock is held.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (string, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, req AuthorizationRequest) (string, error)

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, req AuthorizationRequest) (string, error) {
	return f(ctx, req)
}

// PasteAuthorizer prints the authorization URL and reads back the URL the
// browser was redirected to, extracting the code. It is the manual stand-in
// for browser automation.
//
// One goroutine owned by the PasteAuthorizer reads In line by line for its
// whole lifetime. An Authorize call canceled mid-read leaves that reader in
// place, and the next call receives the line it was waiting for; the
// goroutine exits once In reports EOF or an error. A PasteAuthorizer must
// not be copied after first use.
type PasteAuthorizer struct {
	In  io.Reader
	Out io.Writer

	once    sync.Once
	lines   chan string
	readErr error // set before lines is closed
}

// Authorize prompts on Out and waits for the next line from In.
func (p *PasteAuthorizer) Authorize(ctx context.Context, req AuthorizationRequest) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan string)
		go p.readLines()
	})

	fmt.Fprintf(p.Out, "Open this URL in your browser and log in:\n%s\n\n", req.AuthURL)
	fmt.Fprint(p.Out, "Paste the URL you were redirected to: ")

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("auth: authorization canceled: %w", ctx.Err())
	case line, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("auth: reading redirect URL: %w", p.readErr)
		}

		return CodeFromRedirect(strings.TrimSpace(line))
	}
}

// readLines feeds p.lines until In fails, then records the failure and
// closes the channel.
func (p *PasteAuthorizer) readLines() {
	r := bufio.NewReader(p.In)

	for {
		line, err := r.ReadString('\n')
		if line != "" {
			p.lines <- line
		}

		if err != nil {
			p.readErr = err
			close(p.lines)

			return
		}
	}
}

// CodeFromRedirect extracts the (already unescaped) code query parameter
// from a redirect URL.
func CodeFromRedirect(redirect string) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("auth: parsing redirect URL: %w", err)
	}

	if errParam := u.Query().Get("error"); errParam != "" {
		return "", fmt.Errorf("auth: authorization failed: %s", errParam)
	}

	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("auth: redirect URL has no code parameter")
	}

	return code, nil
}
