package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/orderflow/interfaces/api"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
	showSchema bool
	build      bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a portal configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Backend names and their required settings
  - The cash limit and resilience values
  - Environment variable references (in strict mode)

With --build the service is also wired, which connects to the configured
backends.

Examples:
  # Validate a configuration file
  orderflow validate -c orderflow.yaml

  # Strict validation (fail on missing env vars)
  orderflow validate -c orderflow.yaml --strict

  # Show the JSON schema for configuration
  orderflow validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")
	cmd.Flags().BoolVar(&opts.build, "build", false, "Also wire the service from the configuration")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(ctx context.Context, opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	config, err := loadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if opts.build {
		built, err := api.NewConfigBuilder(config).Build(ctx)
		if err != nil {
			return fmt.Errorf("configuration build failed: %w", err)
		}
		if err := built.Close(ctx); err != nil {
			return fmt.Errorf("release resources: %w", err)
		}
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Cash limit (USD): %s\n", config.Compliance.CashLimitUSD)
	fmt.Fprintf(a.stdout, "  Storage: %s\n", config.Storage.Backend)
	fmt.Fprintf(a.stdout, "  Documents: %s\n", config.Documents.Backend)
	fmt.Fprintf(a.stdout, "  Audit journal: %s\n", config.Audit.Backend)

	if config.Notification.Enabled {
		fmt.Fprintf(a.stdout, "  Notifications: %s (dedupe: %s, async: %t)\n",
			config.Notification.Channel, config.Notification.Dedupe, config.Notification.Async)
	} else {
		fmt.Fprintf(a.stdout, "  Notifications: disabled\n")
	}
	if config.Telemetry.Enabled {
		fmt.Fprintf(a.stdout, "  Tracing: %s\n", config.Telemetry.Exporter)
	}
	if config.HTTP.Address != "" {
		fmt.Fprintf(a.stdout, "  HTTP address: %s\n", config.HTTP.Address)
	}

	return nil
}

// loadConfig reads a configuration file. An empty path yields the in-memory
// defaults.
func loadConfig(path string, strict bool) (*api.PortalConfig, error) {
	if path == "" {
		return api.DefaultPortalConfig(), nil
	}
	loader := api.NewConfigLoaderWithOptions(
		api.ConfigWithValidation(true),
		api.ConfigWithStrictEnv(strict),
	)
	return loader.LoadFile(path)
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := api.ConfigSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
