package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/run-bigpig/agent-guard/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the guarded agent over HTTP",
	Long: `Run the chat API:

  POST /api/chat         one turn, JSON response
  POST /api/chat_stream  one turn, NDJSON progress and result lines
  GET  /api/health       liveness`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address; overrides HTTP_ADDR")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	runner, err := a.newAgent(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(runner,
		server.WithLogger(a.logger),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
