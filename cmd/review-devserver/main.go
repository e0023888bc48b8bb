// Command review-devserver serves the review admin API from a local SQLite store.
//
// Usage:
//
//	review-devserver serve [-addr 127.0.0.1:8080] [-db-path file] [-token t]
//	review-devserver import [-prompt terms] chats.jsonl   # prints the selection id
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-review/internal/config"
	"chat-review/internal/logging"
	"chat-review/internal/server"
	"chat-review/internal/store"

	"github.com/mattn/go-isatty"
)

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "import") {
		cmd, args = args[0], args[1:]
	}

	cfg, rest, err := config.ParseDevServer(cmd, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "usage: review-devserver [serve|import] [flags] [file.jsonl]")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "review-devserver: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
		Color:  isatty.IsTerminal(os.Stderr.Fd()),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "import":
		err = runImport(ctx, logger, cfg, rest)
	default:
		err = runServe(ctx, logger, cfg)
	}
	if err != nil {
		logger.Error("review-devserver: fatal", "cmd", cmd, "error", err)
		os.Exit(1)
	}
}

func runImport(ctx context.Context, logger *slog.Logger, cfg config.DevServerConfig, files []string) error {
	if len(files) != 1 {
		return errors.New("import takes exactly one JSONL file")
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := os.Open(files[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	id, n, err := st.ImportJSONL(ctx, f, cfg.Terms)
	if err != nil {
		return err
	}
	logger.Info("imported selection", "id", id, "chats", n, "db", cfg.DBPath)
	fmt.Println(id)
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg config.DevServerConfig) error {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(st, server.Options{
			ContextPath: cfg.ContextPath,
			Token:       cfg.Token,
			Responder:   server.EchoResponder{},
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("review-devserver: listening", "addr", cfg.Addr, "db", cfg.DBPath, "auth", cfg.Token != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("review-devserver: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
