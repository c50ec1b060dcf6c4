package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notesdb/internal/http"
	"notesdb/internal/report"
	"notesdb/internal/storage"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve health, statistics and notes of an imported database over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.APIPort = servePort
		}

		db, err := openExisting()
		if err != nil {
			return err
		}
		defer func() {
			_ = db.Close()
		}()

		notes, err := storage.NewNoteRepo(db, cfg.Policies())
		if err != nil {
			return err
		}

		router := http.NewRouter(&http.Deps{
			DB:        db,
			Notes:     notes,
			Generator: report.NewReporter(db),
			TopN:      cfg.TopN,
		})

		srv := &nethttp.Server{
			Addr:              ":" + cfg.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errc := make(chan error, 1)
		go func() {
			slog.Info("Starting API server", "addr", srv.Addr, "db", cfg.DBPath)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides API_PORT)")
	rootCmd.AddCommand(serveCmd)
}
