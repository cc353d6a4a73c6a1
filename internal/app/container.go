package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taskdesk/taskdesk/internal/audit"
	audithttp "github.com/taskdesk/taskdesk/internal/audit/http"
	"github.com/taskdesk/taskdesk/internal/auth"
	"github.com/taskdesk/taskdesk/internal/bootstrap"
	"github.com/taskdesk/taskdesk/internal/observability"
	"github.com/taskdesk/taskdesk/internal/platform/cache"
	"github.com/taskdesk/taskdesk/internal/platform/db"
	"github.com/taskdesk/taskdesk/internal/rbac"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/users"
	"github.com/taskdesk/taskdesk/internal/workitems"
	"github.com/taskdesk/taskdesk/jobs"
)

const resetTokenPrefix = "taskdesk:reset:"

// Container owns the long-lived dependencies of the API process.
type Container struct {
	Config  *Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics

	Roles  *roles.Service
	Users  *users.Service
	Auth   *auth.Service
	Seeder *bootstrap.Seeder

	jobsClient *jobs.Client
	inspector  *asynq.Inspector
}

// NewContainer connects to Postgres and Redis and builds every service.
func NewContainer(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions("api"))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	tokens, err := auth.NewTokens(cfg.TokenConfig())
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	roleService := roles.NewService(roles.NewRepository(pool))
	identityRepo := users.NewRepository(pool)
	userService := users.NewService(identityRepo, roleService)
	authService := auth.NewService(identityRepo, roleService, tokens,
		cache.NewOnceGuard(redisClient, resetTokenPrefix), cfg.DefaultRole)
	seeder := bootstrap.NewSeeder(roleService, identityRepo, pool, cfg.AdminConfig(), logger, metrics)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	return &Container{
		Config:     cfg,
		Logger:     logger,
		Pool:       pool,
		Redis:      redisClient,
		Metrics:    metrics,
		Roles:      roleService,
		Users:      userService,
		Auth:       authService,
		Seeder:     seeder,
		jobsClient: jobs.NewClient(redisOpts),
		inspector:  asynq.NewInspector(redisOpts),
	}, nil
}

// Router assembles the HTTP handler tree.
func (c *Container) Router() http.Handler {
	mw := rbac.Middleware{
		Tokens:  c.Auth,
		Roles:   c.Users,
		Logger:  c.Logger,
		Metrics: c.Metrics,
	}
	tasks := workitems.NewService(workitems.Tasks, workitems.NewRepository(c.Pool, workitems.Tasks))
	workOrders := workitems.NewService(workitems.WorkOrders, workitems.NewRepository(c.Pool, workitems.WorkOrders))
	auditService := audit.NewService(audit.NewRepository(c.Pool))

	return NewRouter(RouterParams{
		Logger:             c.Logger,
		Config:             c.Config,
		Health:             c.Pool,
		RBACMiddleware:     mw,
		AuthHandler:        auth.NewHandler(c.Logger, c.Auth, c.jobsClient),
		UsersHandler:       users.NewHandler(c.Logger, c.Users, c.jobsClient, mw),
		RolesHandler:       rbac.NewRolesHandler(c.Logger, c.Roles, c.jobsClient, mw),
		PermissionsHandler: rbac.NewPermissionsHandler(c.Logger, c.Roles, c.jobsClient, mw),
		TasksHandler:       workitems.NewHandler(c.Logger, tasks, mw),
		WorkOrdersHandler:  workitems.NewHandler(c.Logger, workOrders, mw),
		AuditHandler:       audithttp.NewHandler(c.Logger, auditService, mw),
		JobHandler:         jobs.NewHandler(c.inspector, c.Logger),
		Metrics:            c.Metrics,
	})
}

// Close releases every connection held by the container.
func (c *Container) Close() {
	if err := c.inspector.Close(); err != nil {
		c.Logger.Warn("inspector close", slog.Any("error", err))
	}
	if err := c.jobsClient.Close(); err != nil {
		c.Logger.Warn("jobs client close", slog.Any("error", err))
	}
	if err := c.Redis.Close(); err != nil {
		c.Logger.Warn("redis close", slog.Any("error", err))
	}
	c.Pool.Close()
}
