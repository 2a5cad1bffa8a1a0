// Command certupload uploads a certificate template (JRXML layouts plus
// images) on behalf of a user through an interactive terminal form.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/goliatone/go-certupload/config"
	"github.com/goliatone/go-certupload/internal/openapi/loader"
	"github.com/goliatone/go-certupload/pkg/api"
	"github.com/goliatone/go-certupload/pkg/notify"
	"github.com/goliatone/go-certupload/pkg/preview"
	"github.com/goliatone/go-certupload/pkg/renderers/html"
	"github.com/goliatone/go-certupload/pkg/renderers/tui"
	"github.com/goliatone/go-certupload/pkg/session"
	"github.com/goliatone/go-certupload/pkg/upload"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	envFile      string
	baseURL      string
	token        string
	sessionFile  string
	contract     string
	saveToken    bool
	theme        string
	themeVariant string
	summaryHTML  string
	previewAddr  string
	logLevel     string
	timeout      time.Duration
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("certupload", pflag.ContinueOnError)
	flagSet.StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading CERTUPLOAD_* variables (default: .env)")
	flagSet.StringVar(&opts.baseURL, "base-url", "", "API base URL (env CERTUPLOAD_API_BASE_URL)")
	flagSet.StringVar(&opts.token, "token", "", "bearer token (env CERTUPLOAD_AUTH_TOKEN)")
	flagSet.StringVar(&opts.sessionFile, "session-file", "", "YAML file holding authToken (env CERTUPLOAD_SESSION_FILE)")
	flagSet.StringVar(&opts.contract, "contract", "", "API description overriding the embedded one: path, URL or fs:<path> (env CERTUPLOAD_CONTRACT)")
	flagSet.BoolVar(&opts.saveToken, "save-token", false, "store --token in --session-file for later runs")
	flagSet.StringVar(&opts.theme, "theme", "", "theme for the HTML summary (env CERTUPLOAD_THEME)")
	flagSet.StringVar(&opts.themeVariant, "theme-variant", "", "theme variant, e.g. dark (env CERTUPLOAD_THEME_VARIANT)")
	flagSet.StringVar(&opts.summaryHTML, "summary-html", "", "write the selection summary card to this file before each upload")
	flagSet.StringVar(&opts.previewAddr, "preview-addr", "", "serve image previews on this address, e.g. 127.0.0.1:8087")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (env CERTUPLOAD_LOG_LEVEL)")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout, 0 disables (env CERTUPLOAD_HTTP_TIMEOUT)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: certupload [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := resolveConfig(flagSet, opts)
	if err != nil {
		return err
	}

	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionFile := session.NewFile(cfg.SessionFile)
	if opts.saveToken {
		if cfg.SessionFile == "" || cfg.AuthToken == "" {
			return errors.New("--save-token needs both a token and a session file")
		}
		if err := sessionFile.Save(cfg.AuthToken); err != nil {
			return err
		}
		logger.Info("token saved", "path", cfg.SessionFile)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	clientOpts := []api.Option{
		api.WithHTTPClient(httpClient),
		api.WithLogger(logger),
	}
	if cfg.Contract != "" {
		contract, err := loadContract(ctx, cfg.Contract, httpClient)
		if err != nil {
			return err
		}
		clientOpts = append(clientOpts, api.WithContract(contract))
	}
	client, err := api.NewClient(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		return err
	}

	driver := tui.NewSurveyDriver(os.Stdout)
	previews := preview.NewRegistry()

	controller, err := upload.NewController(client,
		upload.WithTokenSource(session.First(session.Static(cfg.AuthToken), sessionFile)),
		upload.WithNotifier(notify.Multi(
			tui.NewNotifier(driver, tui.DefaultTheme),
			notify.NewLogNotifier(logger),
		)),
		upload.WithPreviewRegistry(previews),
		upload.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer controller.Teardown()

	rendererOpts := []html.Option{
		html.WithTheme(cfg.Theme, cfg.ThemeVariant),
		html.WithAction(strings.TrimRight(client.BaseURL(), "/") + "/templates"),
	}
	if opts.previewAddr != "" {
		base, shutdown, err := servePreviews(ctx, opts.previewAddr, previews, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		rendererOpts = append(rendererOpts, html.WithPreviewBaseURL(base))
	}

	sessionOpts := []tui.Option{
		tui.WithPromptDriver(driver),
		tui.WithLogger(logger),
	}
	if opts.summaryHTML != "" {
		renderer, err := html.New(rendererOpts...)
		if err != nil {
			return err
		}
		sessionOpts = append(sessionOpts, tui.WithSummaryHook(summaryWriter(renderer, opts.summaryHTML, logger)))
	}

	sess, err := tui.NewSession(controller, sessionOpts...)
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}

// applyFlags lets explicitly set flags win over the environment.
// resolveConfig validates only after flags are applied, so a flag can fix a
// bad environment value.
func resolveConfig(flagSet *pflag.FlagSet, opts options) (config.Config, error) {
	cfg, err := config.Read(opts.envFile)
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, flagSet, opts)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet, opts options) {
	set := func(name string, dst *string, value string) {
		if flagSet.Changed(name) {
			*dst = value
		}
	}
	set("base-url", &cfg.APIBaseURL, opts.baseURL)
	set("token", &cfg.AuthToken, opts.token)
	set("session-file", &cfg.SessionFile, opts.sessionFile)
	set("contract", &cfg.Contract, opts.contract)
	set("theme", &cfg.Theme, opts.theme)
	set("theme-variant", &cfg.ThemeVariant, opts.themeVariant)
	set("log-level", &cfg.Log.Level, opts.logLevel)
	if flagSet.Changed("timeout") {
		cfg.HTTPTimeout = opts.timeout
	}
	cfg.Sanitize()
}

func loadContract(ctx context.Context, location string, httpClient *http.Client) (*api.Contract, error) {
	raw, err := loader.New(
		loader.WithHTTPClient(httpClient),
		loader.WithFS(os.DirFS(".")),
	).Load(ctx, location)
	if err != nil {
		return nil, err
	}
	contract, err := api.ParseContract(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", location, err)
	}
	for _, id := range []string{api.OperationListUsers, api.OperationCreateTemplate} {
		if _, err := contract.MustOperation(id); err != nil {
			return nil, fmt.Errorf("contract %s: %w", location, err)
		}
	}
	return contract, nil
}

func summaryWriter(renderer *html.Renderer, path string, logger *slog.Logger) tui.SummaryHook {
	return func(ctx context.Context, view upload.View) error {
		out, err := renderer.Render(ctx, view)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		logger.Debug("summary written", "path", path)
		return nil
	}
}

func servePreviews(ctx context.Context, addr string, previews *preview.Registry, logger *slog.Logger) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/previews/", http.StripPrefix("/previews", previews))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("preview server stopped", "error", err)
		}
	}()
	logger.Info("serving previews", "addr", listener.Addr().String())

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return "http://" + listener.Addr().String() + "/previews", shutdown, nil
}
