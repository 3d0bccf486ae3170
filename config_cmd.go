package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tdstream-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if flagJSON {
		shown := *resolvedCfg
		if shown.ClientID != "" {
			shown.ClientID = "****"
		}

		return writeJSON(cmd.OutOrStdout(), &shown)
	}

	return config.RenderEffective(resolvedCfg, cmd.OutOrStdout())
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented config file listing every option",
		RunE:  runConfigInit,
	}
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configInitPath()

	logger := newLogger(os.Stderr, nil, flagVerbose, flagQuiet)
	if err := config.WriteTemplate(path, logger); err != nil {
		return err
	}

	logger.Debug("config init", slog.String("path", path))
	statusf(cmd.OutOrStdout(), "Wrote %s\n", path)

	return nil
}

// configInitPath picks the target the same way Resolve picks the file to
// read: --config, then TDSTREAM_CONFIG, then the platform default.
func configInitPath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}

	if env := config.ReadEnvOverrides(); env.ConfigPath != "" {
		return env.ConfigPath
	}

	return config.DefaultConfigPath()
}
