package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mfonseca/accounthub/internal/auth"
	"github.com/mfonseca/accounthub/internal/config"
	"github.com/mfonseca/accounthub/internal/domain/user"
	"github.com/mfonseca/accounthub/internal/http/handlers"
	"github.com/mfonseca/accounthub/internal/http/middlewares"
	"github.com/mfonseca/accounthub/internal/observability"
	"github.com/mfonseca/accounthub/internal/repo/postgres"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("accounthub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(prom.GinHandleMiddleware())

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// wire up the store, token manager and handlers

	usersRepo := postgres.NewUsersRepo(pool, prom)
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, prom)
	accountHandler := handlers.NewAccountHandler(usersRepo)
	adminHandler := handlers.NewAdminHandler(usersRepo)

	authMW := middlewares.NewAuthMiddleware(jwtManager)

	authGroup := r.Group("/auth", middlewares.RequireJSON())
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	userGroup := r.Group("/user", authMW.RequireAuth(), middlewares.RequireJSON())
	{
		userGroup.GET("/profile", accountHandler.GetProfile)
		userGroup.POST("/update-profile", accountHandler.UpdateProfile)
		userGroup.POST("/change-password", accountHandler.ChangePassword)
	}

	adminGroup := r.Group("/admin",
		authMW.RequireAuth(),
		middlewares.RequireRole(usersRepo, user.RoleAdmin),
		middlewares.RequireJSON(),
	)
	{
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.POST("/update-user-role", adminHandler.UpdateUserRole)
	}

	log.Debug("router configured")

	return r
}
