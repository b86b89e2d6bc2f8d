package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/orderflow/infrastructure/config"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
	api "github.com/felixgeelhaar/orderflow/interfaces/api"
	"github.com/felixgeelhaar/orderflow/interfaces/rest"
)

// ErrJWTSecretRequired is returned when serve has no token secret.
var ErrJWTSecretRequired = errors.New("http.jwt_secret is required to serve")

type serveOptions struct {
	configPath string
	strict     bool
	address    string
}

func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lifecycle HTTP API",
		Long: `Serve the lifecycle HTTP API.

The service is wired from the configuration file, or runs fully in memory
without one. Requests carry an HS256 bearer token whose subject is the
actor ID and whose "role" claim is admin or owner.

Examples:
  JWT_SECRET=s3cret orderflow serve -c orderflow.yaml
  orderflow serve -c orderflow.yaml --address :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on missing env vars")
	cmd.Flags().StringVar(&opts.address, "address", "", "Listen address (overrides http.address)")

	return cmd
}

func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	cfg, err := loadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if opts.address != "" {
		cfg.HTTP.Address = opts.address
	}
	if cfg.HTTP.JWTSecret == "" {
		return ErrJWTSecretRequired
	}

	logging.Init(infraconfig.LoggingConfig(cfg))

	built, err := api.NewConfigBuilder(cfg).Build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Close(context.WithoutCancel(ctx)); err != nil {
			logging.Warn().Add(logging.ErrorField(err)).Msg("failed to release resources")
		}
	}()

	server := rest.NewServer(built.Service, rest.NewAuthenticator(cfg.HTTP.JWTSecret, cfg.HTTP.JWTIssuer))
	return server.Run(ctx, cfg.HTTP.Address)
}
