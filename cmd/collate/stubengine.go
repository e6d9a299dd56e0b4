package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/collate/internal/enginestub"
	"github.com/kingrea/collate/internal/logging"
)

var stubEngineCmd = &cobra.Command{
	Use:   "stub-engine",
	Short: "Serve an offline stand-in for the collation engine",
	Long: `Starts a local HTTP server that answers collation requests with a naive
token-by-token alignment. Useful for demos and for working without an engine.`,
	RunE: serveStubEngine,
}

func init() {
	rootCmd.AddCommand(stubEngineCmd)
	stubEngineCmd.Flags().String("host", "127.0.0.1", "Interface to listen on")
	stubEngineCmd.Flags().IntP("port", "p", 7369, "Port to listen on")
	stubEngineCmd.Flags().String("path", "/collate", "Base path; requests are accepted on path + \"/\"")
	stubEngineCmd.Flags().Bool("debug", false, "Log every request to stderr")
}

func serveStubEngine(cmd *cobra.Command, _ []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	path, _ := cmd.Flags().GetString("path")
	debug, _ := cmd.Flags().GetBool("debug")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := logging.NewWriter(os.Stderr, level)
	engine := enginestub.New(enginestub.WithLogger(logger))

	srv := &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           engine.Handler(path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("stub engine listening", "addr", srv.Addr, "path", path)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("stub engine: %w", err)
	case <-cmd.Context().Done():
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("stub engine: shutdown: %w", err)
		}
		logger.Info("stub engine stopped")
		return nil
	}
}
