package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tonimelisma/tdstream-go/internal/auth"
	"github.com/tonimelisma/tdstream-go/internal/config"
	"github.com/tonimelisma/tdstream-go/internal/registry"
	"github.com/tonimelisma/tdstream-go/internal/tdapi"
)

const httpClientTimeout = 30 * time.Second

// session bundles everything a command needs to talk to the broker: the
// credential store, the registry it coordinates through, and the REST
// client authenticated by the store.
type session struct {
	cfg    *config.Resolved
	reg    registry.Registry
	store  *auth.Store
	client *tdapi.Client
	logger *slog.Logger

	closeReg func() error
}

// openRegistry returns the registry selected by config. The returned close
// function releases the SQLite handle; it is a no-op for memory.
func openRegistry(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (registry.Registry, func() error, error) {
	if cfg.Registry == config.RegistryMemory {
		return registry.NewMemory(), func() error { return nil }, nil
	}

	reg, err := registry.OpenSQLite(ctx, cfg.RegistryPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening registry %s: %w", cfg.RegistryPath, err)
	}

	return reg, reg.Close, nil
}

// openSession loads (or, with an authorizer, creates) the credential and
// wires the REST client to it. Callers must Close the session.
func openSession(ctx context.Context, cfg *config.Resolved, authorizer auth.Authorizer, logger *slog.Logger) (*session, error) {
	reg, closeReg, err := openRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	hc := httpClient()

	store, err := auth.Open(ctx, auth.Options{
		AppName:     cfg.AppName,
		ClientID:    cfg.ClientID,
		RedirectURI: cfg.RedirectURI,
		TokenPath:   cfg.TokenPath,
		TokenURL:    cfg.TokenURL,
		AuthURL:     cfg.AuthURL,
		Registry:    reg,
		Authorizer:  authorizer,
		HTTPClient:  hc,
		Logger:      logger,
	})
	if err != nil {
		if closeErr := closeReg(); closeErr != nil {
			logger.Warn("closing registry", slog.String("error", closeErr.Error()))
		}

		return nil, err
	}

	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = tdapi.DefaultBaseURL
	}

	return &session{
		cfg:      cfg,
		reg:      reg,
		store:    store,
		client:   tdapi.NewClient(baseURL, hc, store, logger),
		logger:   logger,
		closeReg: closeReg,
	}, nil
}

func (s *session) Close() error {
	return s.closeReg()
}

// pasteAuthorizer is the interactive authorizer used by login. It reads
// the redirect URL from stdin and prompts on stderr so stdout stays clean
// for --json.
func pasteAuthorizer(in io.Reader) auth.Authorizer {
	if in == nil {
		in = os.Stdin
	}

	return &auth.PasteAuthorizer{In: in, Out: os.Stderr}
}
