package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rosterhq/rosterd/internal/account"
	"github.com/rosterhq/rosterd/internal/config"
	"github.com/rosterhq/rosterd/internal/credential"
	"github.com/rosterhq/rosterd/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Hasher *credential.Hasher
	Logger *slog.Logger
	// SweepDone records that the startup credential migration sweep has run
	// to completion; healthz reports not-ready until it has.
	SweepDone bool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Outside of dev the real backends are mandatory, even though main also checks.
	if d.DB == nil && !isDev(d.Cfg.AppEnv) {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Hasher == nil {
		return fmt.Errorf("hasher is required")
	}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var repo account.Repository
	if d.DB != nil {
		repo = account.NewPostgresRepository(d.DB)
	} else {
		repo = account.NewMemoryRepository()
	}
	svc := account.NewService(repo, d.Hasher, d.Logger)
	handler := account.NewHandler(svc)

	api := app.Group("/api/v1")
	api.Get("/ping", Ping)

	RegisterAccountRoutes(api, handler, d)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
