package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/deepgram/chatgate/internal/api/handlers"
	"github.com/deepgram/chatgate/internal/api/middleware"
	"github.com/deepgram/chatgate/internal/config"
	"github.com/deepgram/chatgate/internal/services"
	"github.com/deepgram/chatgate/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

var (
	cfgFile string
	addr    string
)

var rootCmd = &cobra.Command{
	Use:   "chatgate",
	Short: "Client-facing gateway for a RAG chat backend",
	Long: `chatgate serves the browser-facing chat API: it streams answers from the
RAG backend as plain text, proxies chat management and document downloads,
and signs users in with OAuth providers.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			cfgFile = os.Getenv("CONFIG_FILE")
		}
		if err := config.LoadFile(cfgFile); err != nil {
			return err
		}
		logger.Setup(config.GetLogLevel(), config.GetLogFormat())

		if addr == "" {
			addr = config.GetServerAddr()
		}
		return run(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_FILE)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (default is $SERVER_ADDR or :8080)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string) error {
	svcs, err := services.InitializeServices()
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	server := &http.Server{
		Addr:              addr,
		Handler:           setupRouter(svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		svcs.GetConnectionManager().CloseAll("server shutting down")
	})

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func setupRouter(svcs *services.Services) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.AccessLog(log.Logger)...)
	handlers.RegisterRoutes(r, svcs)
	return r
}
