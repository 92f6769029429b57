package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/murmurlabs/murmur/internal/config"
	"github.com/murmurlabs/murmur/internal/gateway"
	"github.com/murmurlabs/murmur/internal/memory"
	"github.com/murmurlabs/murmur/internal/observe"
	"github.com/murmurlabs/murmur/internal/server"
	"github.com/murmurlabs/murmur/internal/upstream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversation gateway",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe() {
	var obs *observe.Observer
	if jsonLogs {
		obs = observe.NewJSON(os.Stdout, verbose)
	} else {
		obs = observe.New(os.Stdout, verbose)
	}
	defer obs.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Upstream.APIKey == "" {
		obs.Log().Fatal().Msg("GEMINI_API_KEY is not set")
	}

	store, err := memory.NewSQLiteStore(cfg.Store.Path, obs.Log())
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to init memory store")
	}
	defer store.Close()

	dialer, err := upstream.NewGeminiDialer(cfg.Upstream.APIKey, cfg.Upstream.Endpoint)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to init upstream dialer")
	}

	gw := gateway.New(obs, store, dialer, gateway.Options{
		Model:              cfg.Upstream.Model,
		BaseInstruction:    cfg.Session.Instruction,
		ResponseModalities: cfg.Session.ResponseModalities,
	})
	srv := server.New(cfg.Listen, cfg.WSPath, obs, gw)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs.Log().Info().Str("listen", cfg.Listen).Str("path", cfg.WSPath).Msg("murmur gateway listening")
	if err := srv.Run(ctx); err != nil {
		obs.Log().Fatal().Err(err).Msg("Server failed")
	}
}
