package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"beedee/bot/server"
	"beedee/bot/tasks"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the callback server and the daily birthday scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		loc, err := a.cfg.Schedule.Location()
		if err != nil {
			return err
		}

		scheduler := gocron.NewScheduler(loc)
		if a.cfg.Schedule.Enabled {
			at, err := scheduleAt(a.cfg.Schedule.At)
			if err != nil {
				return fmt.Errorf("schedule.at: %w", err)
			}

			if _, err := scheduler.Every(1).Day().At(at).SingletonMode().Do(tasks.BirthdayCheck(a.scanner, a.log)); err != nil {
				return fmt.Errorf("schedule birthday scan: %w", err)
			}
			scheduler.StartAsync()
			defer scheduler.Stop()

			a.log.Info("Birthday scan scheduled", zap.String("at", at), zap.String("timezone", loc.String()))
		}

		srv := server.NewServer(a.cfg.HTTP.CallbackPath, a.responder, a.log.Named("http"))

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(a.cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			a.log.Info("Signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("HTTP server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)

		a.log.Info("Gracefully shutting down.")
		return nil
	},
}
