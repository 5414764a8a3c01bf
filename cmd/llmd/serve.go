package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llmd/internal/config"
	"llmd/internal/httpapi"
	"llmd/internal/manager"
	"llmd/internal/registry"
)

type serveOptions struct {
	configPath string
	addr       string
	logLevel   string
	logFormat  string

	modelsDir    string
	defaultModel string
	budgetMB     int
	marginMB     int

	contextLength   int
	threads         int
	maxPromptTokens int
	maxOutputBytes  int

	maxQueueDepth int
	maxBodyBytes  int64

	corsOrigins string
	corsMethods string
	corsHeaders string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP generation daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml/.yml, .json, .toml); flags override file values")
	f.StringVar(&opts.addr, "addr", ":8080", "HTTP listen address, e.g. :8080")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	f.StringVar(&opts.logFormat, "log-format", "console", "Log format: console|json")
	f.StringVar(&opts.modelsDir, "models-dir", "~/models/llm", "Directory to scan for *.gguf model files")
	f.StringVar(&opts.defaultModel, "default-model", "", "Default model id when request omits model")
	f.IntVar(&opts.budgetMB, "budget-mb", 0, "Memory budget in MB across loaded sessions (0=unlimited)")
	f.IntVar(&opts.marginMB, "margin-mb", 0, "Reserved memory margin in MB to keep free")
	f.IntVar(&opts.contextLength, "context-length", 0, "Token context length per session (0=default)")
	f.IntVar(&opts.threads, "threads", 0, "Evaluation threads per session (0=default)")
	f.IntVar(&opts.maxPromptTokens, "max-prompt-tokens", 0, "Reject prompts longer than this many tokens (0=context length)")
	f.IntVar(&opts.maxOutputBytes, "max-output-bytes", 0, "Bound on accumulated output per call (0=unbounded)")
	f.IntVar(&opts.maxQueueDepth, "max-queue-depth", 0, "Queued requests per session before 429 (0=default)")
	f.Int64Var(&opts.maxBodyBytes, "max-body-bytes", 0, "Maximum request body size in bytes (0=default 1MiB)")
	f.StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (empty disables CORS)")
	f.StringVar(&opts.corsMethods, "cors-methods", "GET,POST", "Comma-separated allowed CORS methods")
	f.StringVar(&opts.corsHeaders, "cors-headers", "Content-Type", "Comma-separated allowed CORS headers")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	log := newLogger(opts.logLevel, opts.logFormat)

	// Config file first, flags override values the user set explicitly.
	if opts.configPath != "" {
		fileCfg, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		applyFileConfig(cmd, opts, fileCfg)
	}

	reg, err := registry.LoadDir(opts.modelsDir)
	if err != nil {
		return err
	}
	log.Info().Int("models", len(reg)).Str("dir", opts.modelsDir).Msg("registry loaded")

	mgr := manager.New(manager.ManagerConfig{
		Registry:        reg,
		BudgetMB:        opts.budgetMB,
		MarginMB:        opts.marginMB,
		DefaultModel:    opts.defaultModel,
		MaxQueueDepth:   opts.maxQueueDepth,
		ContextLength:   opts.contextLength,
		Threads:         opts.threads,
		MaxPromptTokens: opts.maxPromptTokens,
		MaxOutputBytes:  opts.maxOutputBytes,
		Logger:          log,
	})
	defer mgr.Close()

	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(opts.maxBodyBytes)
	if origins := splitCSV(opts.corsOrigins); len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins, splitCSV(opts.corsMethods), splitCSV(opts.corsHeaders))
	}

	// Base context canceled at shutdown so in-flight generation stops too.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: opts.addr, Handler: httpapi.NewMux(mgr)}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", opts.addr).Msg("llmd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}

// applyFileConfig copies file values into opts for flags the user did not set
// on the command line.
func applyFileConfig(cmd *cobra.Command, opts *serveOptions, fc config.Config) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if fc.Addr != "" && !set("addr") {
		opts.addr = fc.Addr
	}
	if fc.ModelsDir != "" && !set("models-dir") {
		opts.modelsDir = fc.ModelsDir
	}
	if fc.DefaultModel != "" && !set("default-model") {
		opts.defaultModel = fc.DefaultModel
	}
	if fc.BudgetMB != 0 && !set("budget-mb") {
		opts.budgetMB = fc.BudgetMB
	}
	if fc.MarginMB != 0 && !set("margin-mb") {
		opts.marginMB = fc.MarginMB
	}
	if fc.ContextLength != 0 && !set("context-length") {
		opts.contextLength = fc.ContextLength
	}
	if fc.Threads != 0 && !set("threads") {
		opts.threads = fc.Threads
	}
	if fc.MaxPromptTokens != 0 && !set("max-prompt-tokens") {
		opts.maxPromptTokens = fc.MaxPromptTokens
	}
	if fc.MaxOutputBytes != 0 && !set("max-output-bytes") {
		opts.maxOutputBytes = fc.MaxOutputBytes
	}
	if fc.MaxQueueDepth != 0 && !set("max-queue-depth") {
		opts.maxQueueDepth = fc.MaxQueueDepth
	}
}

func newLogger(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var w = os.Stderr
	if format == "console" {
		cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
