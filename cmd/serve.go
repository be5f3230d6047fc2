package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dodoricogino/INMO-enlaces-PDF/api"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
)

const shutdownTimeout = 10 * time.Second

var flagLocale string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes extraction, property storage, brochures and public links over HTTP.

Routes:
  POST /api/extract              {url} -> extracted payload
  POST /api/properties           save a reviewed property
  GET  /api/properties/{id}      stored property
  GET  /api/properties/{id}/pdf  brochure PDF
  GET  /p/{slug}                 public page
  GET  /health`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagLocale, "locale", "es", "Locale for prices and areas on brochures and public pages")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	publisher, err := a.openPublisher()
	if err != nil {
		return err
	}

	format := services.NewFormatter(flagLocale)
	pages, err := services.NewPublicPageRenderer(format)
	if err != nil {
		return err
	}
	props := services.NewPropertyService(services.PropertyConfig{
		Store:       store,
		Publisher:   publisher,
		Logger:      a.logger.With("component", "properties"),
		LinkTTLDays: cfg.LinkTTLDays,
	})

	srv := api.NewServer(cfg.HTTPPort, api.Deps{
		Extractor:  a.extractor,
		Properties: props,
		Brochures:  services.NewBrochureRenderer(format),
		Pages:      pages,
		Publisher:  publisher,
		Retry:      a.retryConfig(),
		Logger:     a.logger.With("component", "rest_server"),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
