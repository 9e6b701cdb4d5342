package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/examprep/internal/compose"
	"github.com/pavelanni/examprep/internal/grading"
	"github.com/pavelanni/examprep/internal/handler"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/llm"
	"github.com/pavelanni/examprep/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examprep",
		Short: "Question bank, exam composer and scoring engine for exam preparation",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), normalizeCmd(), composeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examprep --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags registers the database, config and logging flags every
// command shares.
func commonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Config file path (default: examprep.{yaml,json,toml} in the search path)")
	f.String("driver", store.DriverSQLite, "Database driver (sqlite, postgres)")
	f.String("db", "examprep.db", "SQLite database path or PostgreSQL URL")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	commonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringSliceP("questions", "q", nil, "Question files to import on start, as pool=path or path (repeatable)")
	f.StringSlice("lessons", nil, "Lesson files to import on start, as section=path (repeatable)")
	f.StringP("lang", "l", "en", "Fallback language for messages (en, el)")
	f.String("title", "", "Exam title recorded in exports")
	f.String("llm-provider", "", "Grading provider (openai, anthropic, gemini, mock, none)")
	f.String("prompt-variant", "", "Grading prompt variant (strict, standard, lenient)")
	f.Duration("request-timeout", 2*time.Minute, "Per-request timeout, including open-response grading")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// openStore opens the configured database.
func openStore(ctx context.Context, cfg appConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// newGrader wires the configured LLM provider into the grading
// orchestrator. With no provider, open responses degrade to
// grading_unavailable.
func newGrader(ctx context.Context, cfg appConfig) (*grading.Orchestrator, error) {
	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		slog.Warn("no LLM provider configured, open responses will not be graded")
		return grading.New(nil, cfg.Grading), nil
	}
	oracle, err := llm.NewOracle(provider, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create grading oracle: %w", err)
	}
	slog.Info("grading oracle ready", "provider", cfg.LLM.Provider, "model", provider.ModelID(), "prompt", cfg.LLM.Prompt)
	return grading.New(oracle, cfg.Grading), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	imp := newImporter(db)
	for _, arg := range v.GetStringSlice("questions") {
		pool, path := splitNamedPath(arg)
		if _, err := imp.importQuestions(ctx, pool, path, ""); err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
	}
	for _, arg := range v.GetStringSlice("lessons") {
		section, path := splitNamedPath(arg)
		if _, err := imp.importLessons(ctx, section, path); err != nil {
			return fmt.Errorf("load lessons: %w", err)
		}
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	grader, err := newGrader(ctx, cfg)
	if err != nil {
		return err
	}

	if err := db.SetExamInfo(ctx, store.ExamInfo{
		Title:         cfg.Title,
		Language:      lang,
		PromptVariant: cfg.LLM.Prompt,
		PassPercent:   cfg.Scoring.PassThreshold(),
	}); err != nil {
		return fmt.Errorf("record exam info: %w", err)
	}

	h := handler.New(db, compose.New(nil), grader, handler.Config{
		Scoring:    cfg.Scoring,
		Blueprints: cfg.Blueprints,
		Lang:       lang,
		Timeout:    v.GetDuration("request-timeout"),
	})

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: h.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"driver", cfg.Store.Driver,
		"lang", lang,
		"blueprints", len(cfg.Blueprints),
		"llm_provider", cfg.LLM.Provider,
		"pass_percent", cfg.Scoring.PassThreshold(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
