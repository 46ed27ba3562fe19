package main

import (
	"github.com/jun787/CVA-cupping-forms/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve sessions, field definitions, filled-page detection, exports and
page previews over HTTP until interrupted.

Endpoints:
  GET    /health, /ready, /status, /fields
  GET    /sessions                       POST /sessions
  GET    /sessions/{id}                  PATCH, DELETE /sessions/{id}
  POST   /sessions/{id}/duplicate
  PUT    /sessions/{id}/values/{field}   DELETE clears the value
  GET    /sessions/{id}/pages
  POST   /sessions/{id}/export           200 PDF, 204 when nothing is filled
  GET    /preview/pages/{page}?view=&scale=

Examples:
  cvaforms serve --listen-addr 127.0.0.1:8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen-addr", "", "address to listen on (default :8080)")
	serveCmd.Flags().Float64("raster-scale", 0, "pixels per point for exported pages (default from config)")
	serveCmd.Flags().Int("raster-max-pixels", 0, "pixel budget per exported page (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	fields, err := loadFields()
	if err != nil {
		return err
	}
	if problems := fields.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.WithError(p).Warn("Field definition problem")
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	assetStore := newAssets()
	if check := assetStore.Check(cmd.Context(), appConfig.PDFPath, appConfig.FontPath); !check.OK {
		// exports report MissingAsset until the assets appear
		log.WithFields("missing", check.Missing).Warn("Assets are unreachable")
	}

	exp, err := newExporter(assetStore)
	if err != nil {
		return err
	}

	srv, err := server.New(&server.Config{
		Logger:   log,
		Store:    store,
		Fields:   fields,
		Exporter: exp,
		PDFPath:  appConfig.PDFPath,
		FontPath: appConfig.FontPath,
		Addr:     appConfig.ListenAddr,
		Preview:  previewLoader(assetStore),
	})
	if err != nil {
		return err
	}

	log.WithFields("sessions", store.Count(), "fields", len(fields.Fields)).Info("Starting server")
	return srv.Run(cmd.Context())
}
