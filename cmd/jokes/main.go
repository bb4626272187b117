package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jokesdb/jokes-api/cmd/jokes/cli"
	"github.com/jokesdb/jokes-api/internal/app"
	"github.com/jokesdb/jokes-api/internal/audit"
	audithttp "github.com/jokesdb/jokes-api/internal/audit/http"
	"github.com/jokesdb/jokes-api/internal/auth"
	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/categories"
	"github.com/jokesdb/jokes-api/internal/jokes"
	"github.com/jokesdb/jokes-api/internal/observability"
	"github.com/jokesdb/jokes-api/internal/platform/cache"
	"github.com/jokesdb/jokes-api/internal/platform/db"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
	"github.com/jokesdb/jokes-api/internal/users"
	"github.com/jokesdb/jokes-api/internal/votes"
	"github.com/jokesdb/jokes-api/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, redisOpts, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	engine := authz.NewEngine(metrics)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokenService(redisClient, cfg.TokenSecret, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(auth.ServiceConfig{
		Repo:    authRepo,
		Tokens:  tokens,
		Engine:  engine,
		Notices: jobClient,
		Logger:  logger,
	})
	authenticator := auth.NewAuthenticator(tokens, authRepo, logger)
	authHandler := auth.NewHandler(logger, authService, authenticator, rbacMiddleware)

	jokesService := jokes.NewService(jokes.NewRepository(pool), engine)
	categoriesService := categories.NewService(categories.NewRepository(pool), engine)
	votesService := votes.NewService(votes.NewRepository(pool), jokesService, engine)
	usersService := users.NewService(users.NewRepository(pool), engine, tokens, logger, 0).
		WithAudit(shared.NewAuditLogger(pool))

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Authenticator:      authenticator,
		AuthHandler:        authHandler,
		JokesHandler:       jokes.NewHandler(logger, jokesService, cfg.DefaultPageSize),
		CategoriesHandler:  categories.NewHandler(logger, categoriesService, cfg.DefaultPageSize),
		VotesHandler:       votes.NewHandler(logger, votesService, cfg.DefaultPageSize),
		UsersHandler:       users.NewHandler(logger, usersService, cfg.DefaultPageSize),
		PermissionsHandler: rbac.NewPermissionsHandler(rbac.NewCatalog(), rbacMiddleware),
		RBACMiddleware:     rbacMiddleware,
		JobHandler:         jobs.NewHandler(inspector, logger),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(pool))),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCommand handles "jobs trigger <task>" and "jobs stats".
func runJobsCommand(ctx context.Context, opts asynq.RedisClientOpt, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	helper := cli.NewJobsCLI(opts)
	defer helper.Close()

	switch fs.Arg(0) {
	case "trigger":
		info, err := helper.Trigger(ctx, fs.Arg(1))
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s\n", info.Type, info.ID)
		return nil
	case "stats":
		stats, err := helper.InspectQueue()
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(stats)
	default:
		return fmt.Errorf("usage: jokes jobs trigger <%s> | jokes jobs stats", jobs.TaskTokensPrune)
	}
}
