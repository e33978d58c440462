package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resume-matcher/internal/analyses"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/llm"
	"resume-matcher/internal/llm/gemini"
	"resume-matcher/internal/services/health"
	"resume-matcher/internal/sessions"
	"resume-matcher/internal/shared/config"
	"resume-matcher/internal/shared/server"
	"resume-matcher/internal/shared/server/middleware"
	"resume-matcher/internal/shared/storage/db"
	"resume-matcher/internal/web"
)

const defaultShutdownTimeout = 15 * time.Second

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Router     http.Handler
	DB         *sql.DB
	Sessions   sessions.Repo
	Analyses   *analyses.Service
	Controller *sessions.Controller
}

// Build wires repositories, the analysis provider and HTTP handlers.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlDB, err := buildDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var repo sessions.Repo
	if sqlDB != nil {
		repo = &sessions.PGRepo{DB: sqlDB, TTL: cfg.SessionTTL}
	} else {
		repo = sessions.NewMemoryRepo(cfg.SessionTTL)
	}

	client, err := buildLLM(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := &analyses.Service{
		LLM:      client,
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
		Logger:   logger,
	}
	ctrl := sessions.NewController(repo, svc, extract.Extract, logger)

	pages, err := web.NewHandler(ctrl)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		DB:         sqlDB,
		Sessions:   repo,
		Analyses:   svc,
		Controller: ctrl,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:  cfg,
		Pages:   pages,
		API:     web.NewAPIHandler(svc, extract.Extract),
		Limiter: middleware.NewRateLimiter(nil),
		Health:  newHealth(sqlDB, cfg, client),
	})

	return app, nil
}

// Run serves HTTP and sweeps expired sessions until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := server.NewHTTPServer(a.Config, a.Router)
	g.Go(func() error {
		return server.Serve(gctx, srv, a.Config.ShutdownTimeout)
	})
	g.Go(func() error {
		return sessions.RunJanitor(gctx, a.Sessions, a.Config.SessionTTL, a.Config.SessionSweep, a.Logger)
	})

	err := g.Wait()
	if closeErr := a.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close stops outstanding analyses and releases the database.
func (a *App) Close() error {
	timeout := a.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if a.Controller != nil {
		if err := a.Controller.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close controller: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, logger *zap.Logger) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("bootstrap.memory_sessions", zap.String("reason", "DATABASE_URL empty"))
		return nil, nil
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			sqlDB = nil
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			logger.Warn("bootstrap.database_unavailable", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("database: %w", err)
	}
	return sqlDB, nil
}

func buildLLM(ctx context.Context, cfg config.Config, logger *zap.Logger) (llm.Client, error) {
	if cfg.LLMProvider != "gemini" {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	client, err := gemini.NewClient(ctx, cfg.APIKey, cfg.LLMModel, logger)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		// Analyses fail with a configuration error until a key is provided.
		logger.Warn("bootstrap.llm_unconfigured", zap.String("provider", cfg.LLMProvider))
		return llm.PlaceholderClient{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return client, nil
}

func newHealth(sqlDB *sql.DB, cfg config.Config, client llm.Client) *health.Service {
	_, placeholder := client.(llm.PlaceholderClient)
	if sqlDB == nil {
		return health.NewService(nil, cfg.LLMProvider, !placeholder)
	}
	return health.NewService(sqlDB, cfg.LLMProvider, !placeholder)
}
