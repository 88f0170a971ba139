package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/adapter/cache"
	"github.com/example/storefront/internal/adapter/hostapi"
	"github.com/example/storefront/internal/adapter/httpapi"
	"github.com/example/storefront/internal/adapter/natsstan"
	"github.com/example/storefront/internal/adapter/repo"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type app struct {
	cfg    config.Config
	logger *zap.Logger

	pool       *pgxpool.Pool
	engine     *usecase.Engine
	server     *httpapi.Server
	engineDone chan error
}

func hostURL(h config.HostConfig) string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	return hostapi.ResourceURL(h.Resource)
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, engineDone: make(chan error, 1)}

	opts := []usecase.Option{
		usecase.WithLogger(logger.Named("engine")),
		usecase.WithNotificationTTL(cfg.Shop.NotificationTTL),
		usecase.WithCheckoutTimeout(cfg.Host.CheckoutTimeout),
		usecase.WithKeepCartOnClose(cfg.Shop.KeepCartOnClose),
	}

	var receipts domain.ReceiptRepository
	if cfg.Database.URL != "" {
		if err := repo.Migrate(cfg.Database.URL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.pool = pool
		receipts = repo.NewPostgresReceiptRepo(pool)
		opts = append(opts, usecase.WithReceipts(receipts))
	} else {
		logger.Info("no database configured, receipt journal disabled")
	}

	catalog := cache.NewMemoryCatalogCache()
	host := hostapi.NewClient(hostURL(cfg.Host), &http.Client{}, logger.Named("host"))
	a.engine = usecase.NewEngine(host, catalog, opts...)
	a.server = httpapi.NewServer(a.engine, usecase.GetCatalog{Cache: catalog}, receipts, cfg.HTTP.WebDir, logger.Named("http"))
	return a, nil
}

// start runs the engine and, when enabled, the host message subscription.
func (a *app) start(ctx context.Context) {
	go func() { a.engineDone <- a.engine.Run(ctx) }()

	if !a.cfg.STAN.Enabled {
		return
	}
	sub := &natsstan.Subscriber{
		ClusterID: a.cfg.STAN.ClusterID,
		ClientID:  a.cfg.STAN.ClientID,
		URL:       a.cfg.STAN.URL,
		Subject:   a.cfg.STAN.Subject,
		Queue:     a.cfg.STAN.Queue,
		Durable:   a.cfg.STAN.Durable,
		Logger:    a.logger.Named("stan"),
	}
	uc := usecase.ProcessHostMessage{Engine: a.engine}
	if err := sub.Subscribe(ctx, uc.Execute); err != nil {
		// Host messages still arrive over HTTP.
		a.logger.Error("host message subscription unavailable", zap.Error(err))
	}
}

func (a *app) run(ctx context.Context) error {
	a.start(ctx)

	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: a.server.Router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", zap.String("addr", srv.Addr), zap.String("host", hostURL(a.cfg.Host)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		a.logger.Error("http server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	if serveErr != nil {
		return serveErr
	}
	<-a.engineDone
	a.logger.Info("storefront stopped")
	return nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
