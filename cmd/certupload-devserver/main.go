// Command certupload-devserver runs an in-memory stand-in for the template
// backend so the client can be exercised locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/goliatone/go-certupload/config"
	"github.com/goliatone/go-certupload/internal/fakeapi"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		envFile  string
		addr     string
		token    string
		envelope bool
		maxSize  int64
	)
	flagSet := pflag.NewFlagSet("certupload-devserver", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env)")
	flagSet.StringVar(&addr, "addr", "", "listen address (env CERTUPLOAD_DEVSERVER_ADDR)")
	flagSet.StringVar(&token, "token", "", "required bearer token, empty accepts anything (env CERTUPLOAD_DEVSERVER_TOKEN)")
	flagSet.BoolVar(&envelope, "envelope", false, `answer /profile/all with {"users": [...]} instead of a bare list`)
	flagSet.Int64Var(&maxSize, "max-upload", fakeapi.DefaultMaxUploadSize, "maximum upload size in bytes")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if flagSet.Changed("addr") {
		cfg.DevServer.Addr = addr
	}
	if flagSet.Changed("token") {
		cfg.DevServer.Token = token
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	backend := fakeapi.New(
		fakeapi.WithToken(cfg.DevServer.Token),
		fakeapi.WithEnvelope(envelope),
		fakeapi.WithMaxUploadSize(maxSize),
		fakeapi.WithLogger(logger),
	)
	srv := &http.Server{
		Addr:              cfg.DevServer.Addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", "addr", cfg.DevServer.Addr, "auth", cfg.DevServer.Token != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
