package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clearcomply/compliance-cli/internal/blob"
	"github.com/clearcomply/compliance-cli/internal/engine"
	"github.com/clearcomply/compliance-cli/internal/extract"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		storage, err := blob.NewFSStorage(cfg.Reports.OutputDir)
		if err != nil {
			return eris.Wrap(err, "init report storage")
		}

		api := &apiServer{
			store:     st,
			analyzer:  engine.NewAnalyzer(st, extract.NewFileExtractor(), cfg.Actor),
			projector: engine.NewProjector(st),
			reporter:  engine.NewReporter(st, storage, cfg.Actor),
			limiter:   rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateLimit*2),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
