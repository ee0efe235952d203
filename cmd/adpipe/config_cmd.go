package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mediaops/adpipe/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect the effective adpipe configuration. Values merge the config
file, environment variables, and built-in defaults.`,
		Example: `  adpipe config init
  adpipe config show
  adpipe config validate`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigValidateCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a starter config file populated with the default settings.
Access tokens are left empty; supply them in the file, a .env file, or
the environment.`,
		Example: `  adpipe config init
  adpipe config init --output /etc/adpipe/adpipe.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(out); err == nil {
				return fmt.Errorf("config file already exists: %s", out)
			}

			data, err := yaml.Marshal(config.DefaultConfig())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Printf("Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "output", "adpipe.yaml", "path of the config file to create")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the effective configuration in YAML format. Access tokens are
redacted.`,
		Example: `  adpipe config show
  adpipe config show --config /etc/adpipe/adpipe.yaml`,
		RunE: configShowRun,
	}
}

func configShowRun(cmd *cobra.Command, args []string) error {
	redacted := *globalCfg
	if redacted.Source.AccessToken != "" {
		redacted.Source.AccessToken = "[redacted]"
	}
	if redacted.Platform.AccessToken != "" {
		redacted.Platform.AccessToken = "[redacted]"
	}
	if redacted.Platform.AppSecret != "" {
		redacted.Platform.AppSecret = "[redacted]"
	}

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println(string(data))
	return nil
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration can drive a pipeline run",
		Example: `  adpipe config validate
  adpipe config validate --config ./adpipe.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := globalCfg.Validate(); err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}
			fmt.Println("Configuration is valid")
			return nil
		},
	}
}
