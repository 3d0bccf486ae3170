package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tdstream-go/internal/auth"
	"github.com/tonimelisma/tdstream-go/internal/tdapi"
)

func newLoginCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize this app and save the token",
		Long: `Run the OAuth authorization-code flow: open the printed URL, log in, and
paste back the URL the browser was redirected to. An existing valid token is
reused unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard any saved token and authorize again")

	return cmd
}

func runLogin(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()
	logger := buildLogger()

	if force {
		if err := auth.Logout(resolvedCfg.TokenPath, logger); err != nil {
			return err
		}
	}

	sess, err := openSession(ctx, resolvedCfg, pasteAuthorizer(cmd.InOrStdin()), logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	cred := sess.store.Credential()

	logger.Info("login complete",
		slog.String("app", sess.store.AppName()),
		slog.Time("refresh_expiry", cred.RefreshExpiry),
	)

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), tokenStatus(sess.store.AppName(), sess.store.TokenPath(), auth.Authenticated, cred))
	}

	statusf(cmd.OutOrStdout(), "Logged in as app %q. Token saved to %s\n", sess.store.AppName(), sess.store.TokenPath())

	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := auth.Logout(resolvedCfg.TokenPath, buildLogger()); err != nil {
				return err
			}

			statusf(cmd.OutOrStdout(), "Logged out. Removed %s\n", resolvedCfg.TokenPath)

			return nil
		},
	}
}

// tokenStatusJSON is the JSON shape of the token command.
type tokenStatusJSON struct {
	App           string    `json:"app"`
	TokenPath     string    `json:"token_path"`
	State         string    `json:"state"`
	AccessExpiry  time.Time `json:"access_expiry"`
	RefreshExpiry time.Time `json:"refresh_expiry"`
	Scope         string    `json:"scope,omitempty"`
}

func tokenStatus(app, path string, st auth.CredentialState, cred *auth.Credential) tokenStatusJSON {
	out := tokenStatusJSON{App: app, TokenPath: path, State: st.String()}
	if cred != nil {
		out.AccessExpiry = cred.AccessExpiry
		out.RefreshExpiry = cred.RefreshExpiry
		out.Scope = cred.Scope
	}

	return out
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show the saved token's expirations, refreshing it if needed",
		Long: `Load the saved token, refresh the access token if it has expired, and print
both expirations. Never starts an interactive authorization.`,
		RunE: runToken,
	}
}

func runToken(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	sess, err := openSession(ctx, resolvedCfg, nil, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	st, err := sess.store.State(ctx)
	if err != nil {
		return err
	}

	cred := sess.store.Credential()
	status := tokenStatus(sess.store.AppName(), sess.store.TokenPath(), st, cred)

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), status)
	}

	now := time.Now()
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "App:            %s\n", status.App)
	fmt.Fprintf(w, "Token file:     %s\n", status.TokenPath)
	fmt.Fprintf(w, "State:          %s\n", status.State)
	fmt.Fprintf(w, "Access token:   expires in %s\n", formatRemaining(status.AccessExpiry, now))
	fmt.Fprintf(w, "Refresh token:  expires in %s\n", formatRemaining(status.RefreshExpiry, now))

	return nil
}

func newPrincipalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "principals",
		Short: "Show the user principals and streamer connection info",
		RunE:  runPrincipals,
	}
}

func runPrincipals(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	sess, err := openSession(ctx, resolvedCfg, nil, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	p, err := sess.client.UserPrincipals(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), p)
	}

	printPrincipals(cmd, p)

	return nil
}

func printPrincipals(cmd *cobra.Command, p *tdapi.UserPrincipal) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "User:      %s\n", p.UserID)
	fmt.Fprintf(w, "Streamer:  %s\n", p.StreamerInfo.StreamerSocketURL)

	if ts, err := p.StreamerInfo.TokenTime(); err == nil {
		fmt.Fprintf(w, "Token at:  %s\n", ts.Format(time.RFC3339))
	}

	fmt.Fprintf(w, "Accounts:  %d\n", len(p.Accounts))

	for i := range p.Accounts {
		a := &p.Accounts[i]
		fmt.Fprintf(w, "  %s  %s\n", a.AccountID, a.DisplayName)
	}
}
