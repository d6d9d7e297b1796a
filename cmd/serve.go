package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qaforge/casegen/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the REST API so automation pipelines can call the generator:

  GET  /health        liveness probe
  GET  /ready         readiness probe
  GET  /api/status    corpus state
  POST /api/generate  generate a suite for a user story`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()

	a, err := setupApp(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server := api.NewServer(api.Config{
		Pool:          a.DBPool,
		Store:         a.Store,
		Generator:     a.TestGen,
		Collection:    a.Config.CollectionName,
		GenerateRPS:   a.Config.GenerateRPS,
		GenerateBurst: a.Config.GenerateBurst,
	}, logger)

	addr := serveAddr
	if addr == "" {
		addr = a.Config.ListenAddr
	}

	if err := server.Run(ctx, addr); err != nil {
		return fmt.Errorf("running HTTP server: %w", err)
	}
	return nil
}
