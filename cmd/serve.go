package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyteller/internal/logger"
	"github.com/Yates-Labs/storyteller/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web story teller",
	Long: `Serve the story teller in the browser with a "Start Story" tab and a
"Continue Story" tab. A JSON API is available under /api/v1/story and
Prometheus metrics under /metrics.

Examples:
  storyteller serve
  storyteller serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from STORYTELLER_ADDR or :7860)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := app.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(app.builder, app.recorder, server.Options{
		Addr:            addr,
		ReadTimeout:     app.cfg.Server.ReadTimeout,
		ShutdownTimeout: app.cfg.Server.ShutdownTimeout,
		Production:      app.cfg.IsProduction(),
		Debug:           logger.ParseLevel(app.cfg.Log.Level) == slog.LevelDebug,
	})
	return srv.Run(cmd.Context())
}
