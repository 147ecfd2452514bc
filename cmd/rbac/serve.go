package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/99minutos/rbac-system/internal/api"
	"github.com/99minutos/rbac-system/internal/api/handler"
	"github.com/99minutos/rbac-system/internal/core/service"
	"github.com/99minutos/rbac-system/internal/infrastructure/config"
	redisdb "github.com/99minutos/rbac-system/internal/infrastructure/db/redis"
	"github.com/99minutos/rbac-system/internal/infrastructure/queue"
	"github.com/99minutos/rbac-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Component("server")

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()
	if err := st.migrate(ctx); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, st.repos.Audit, logger.Component("audit"))
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	authService := service.NewAuthService(
		st.repos,
		redisdb.NewSessionStore(rdb),
		dispatcher,
		cfg.JWTSecret,
		cfg.TokenTTL,
		logger.Component("auth"),
	)
	accessService := service.NewAccessService(st.repos, logger.Component("access"))

	e := api.NewRouter(api.Deps{
		Auth:        authService,
		Users:       service.NewUserService(st.repos, authService, dispatcher, logger.Component("users")),
		Roles:       service.NewRoleService(st.repos, dispatcher),
		Permissions: service.NewPermissionService(st.repos.Permissions, dispatcher),
		Menus:       service.NewMenuService(st.repos, dispatcher),
		Access:      accessService,
		Audit:       service.NewAuditService(st.repos.Audit),
		Health: []handler.Dependency{
			{Name: st.name, Ping: st.ping},
			{Name: "redis", Ping: func(ctx context.Context) error {
				return redisdb.Ping(ctx, rdb, 2*time.Second)
			}},
		},
		Log: logger.Component("http"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("driver", st.name).Msg("starting http server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
