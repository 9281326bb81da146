package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mhpenta/genstudio"
	"github.com/mhpenta/genstudio/config"
	"github.com/mhpenta/genstudio/provider/gemini"
	"github.com/mhpenta/genstudio/tui"
	"github.com/mhpenta/genstudio/web"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "genstudio",
		Short:        "Chat and text-to-image studio backed by the Gemini API",
		SilenceUsage: true,
		RunE:         runTUI,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("chat-model", "", "chat model id")
	pf.String("image-model", "", "image model id")
	pf.Duration("timeout", 0, "timeout for each provider call (0 disables)")
	pf.Bool("wait-on-rate-limit", false, "wait for rate limit capacity instead of failing")
	pf.String("log-level", "", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", "", "log format (console, json)")
	pf.String("log-file", "", "write logs to this file")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal interface (default)",
		RunE:  runTUI,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the studio as a local web page",
		RunE:  runServe,
	}
	serveCmd.Flags().String("addr", "", "listen address")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Print the configured models and their limits",
		RunE:  runModels,
	}

	root.AddCommand(tuiCmd, serveCmd, modelsCmd)
	return root
}

// loadConfig reads the configuration and applies the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{ConfigFile: path})
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return nil, errors.Wrapf(err, "set %s (or %s) in the environment or a .env file",
				config.APIKeyEnv, config.FallbackAPIKeyEnv)
		}
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	stringFlags := map[string]*string{
		"chat-model":  &cfg.ChatModel,
		"image-model": &cfg.ImageModel,
		"log-level":   &cfg.LogLevel,
		"log-format":  &cfg.LogFormat,
		"log-file":    &cfg.LogFile,
		"addr":        &cfg.Addr,
	}
	for name, dst := range stringFlags {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return errors.Wrapf(err, "flag --%s", name)
		}
		*dst = v
	}

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return errors.Wrap(err, "flag --timeout")
		}
		cfg.RequestTimeout = v
	}
	if flags.Changed("wait-on-rate-limit") {
		v, err := flags.GetBool("wait-on-rate-limit")
		if err != nil {
			return errors.Wrap(err, "flag --wait-on-rate-limit")
		}
		cfg.WaitOnRateLimit = v
	}

	return cfg.Validate()
}

// newGateway builds the Gemini provider behind a rate-limited Manager.
func newGateway(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*genstudio.Manager, error) {
	provider, err := gemini.New(ctx, &gemini.Config{
		APIKey:     cfg.APIKey,
		ChatModel:  cfg.ChatModel,
		ImageModel: cfg.ImageModel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}

	opts := []genstudio.ManagerOption{
		genstudio.WithLogger(logger),
		genstudio.WithTimeout(cfg.RequestTimeout),
	}
	if cfg.WaitOnRateLimit {
		opts = append(opts, genstudio.WithWaitOnRateLimit(cfg.RequestTimeout))
	}
	return genstudio.NewManager(provider, opts...), nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	gw, err := newGateway(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer gw.Close()

	logger.Info().Str("chat_model", string(gw.ChatModel())).Str("image_model", string(gw.ImageModel())).Msg("starting tui")
	return tui.Run(cmd.Context(), tui.Config{Gateway: gw, Logger: logger})
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	gw, err := newGateway(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer gw.Close()

	srv, err := web.New(cmd.Context(), web.Config{Addr: cfg.Addr, Gateway: gw, Logger: logger})
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	gw, err := newGateway(cmd.Context(), cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer gw.Close()

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	return enc.Encode(gw.Models())
}
