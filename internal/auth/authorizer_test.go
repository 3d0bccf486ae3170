package auth

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFromRedirect(t *testing.T) {
	tests := []struct {
		name     string
		redirect string
		want     string
		wantErr  string
	}{
		{name: "plain", redirect: "https://localhost/?code=abc123", want: "abc123"},
		{name: "escaped", redirect: "https://localhost/?code=a%2Bb%2Fc%3D", want: "a+b/c="},
		{name: "missing", redirect: "https://localhost/?state=x", wantErr: "no code parameter"},
		{name: "denied", redirect: "https://localhost/?error=access_denied", wantErr: "access_denied"},
		{name: "malformed", redirect: "://nope", wantErr: "parsing redirect URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CodeFromRedirect(tt.redirect)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPasteAuthorizer_ReadsRedirect(t *testing.T) {
	var out bytes.Buffer

	p := &PasteAuthorizer{
		In:  strings.NewReader("https://localhost/?code=pasted\n"),
		Out: &out,
	}

	code, err := p.Authorize(context.Background(), AuthorizationRequest{AuthURL: "https://auth.example.com/auth?x=1"})
	require.NoError(t, err)
	assert.Equal(t, "pasted", code)
	assert.Contains(t, out.String(), "https://auth.example.com/auth?x=1")
}

func TestPasteAuthorizer_AcceptsLineWithoutNewline(t *testing.T) {
	p := &PasteAuthorizer{In: strings.NewReader("https://localhost/?code=eof"), Out: io.Discard}

	code, err := p.Authorize(context.Background(), AuthorizationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "eof", code)
}

func TestPasteAuthorizer_EmptyInput(t *testing.T) {
	p := &PasteAuthorizer{In: strings.NewReader(""), Out: io.Discard}

	_, err := p.Authorize(context.Background(), AuthorizationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPasteAuthorizer_Canceled(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	p := &PasteAuthorizer{In: pr, Out: io.Discard}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Authorize(ctx, AuthorizationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPasteAuthorizer_CanceledReadCarriesOverToNextCall(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	p := &PasteAuthorizer{In: pr, Out: io.Discard}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Authorize(ctx, AuthorizationRequest{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		_, _ = io.WriteString(pw, "https://localhost/?code=late\n")
	}()

	code, err := p.Authorize(context.Background(), AuthorizationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "late", code)
}

func TestPasteAuthorizer_ReaderStopsAtEOF(t *testing.T) {
	p := &PasteAuthorizer{In: strings.NewReader("https://localhost/?code=once\n"), Out: io.Discard}

	code, err := p.Authorize(context.Background(), AuthorizationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "once", code)

	_, err = p.Authorize(context.Background(), AuthorizationRequest{})
	assert.ErrorIs(t, err, io.EOF)
}
