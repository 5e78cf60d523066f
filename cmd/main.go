package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"TourRoute-App/internal/config"
	domainrepo "TourRoute-App/internal/domain/repository"
	"TourRoute-App/internal/domain/service"
	"TourRoute-App/internal/handler"
	"TourRoute-App/internal/infrastructure/database"
	"TourRoute-App/internal/infrastructure/firestore"
	"TourRoute-App/internal/logger"
	"TourRoute-App/internal/repository"
	"TourRoute-App/internal/usecase"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("設定の読み込みに失敗: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFile)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		logrus.Fatalf("依存関係の初期化に失敗: %v", err)
	}
	defer deps.close()

	gate := service.NewPublishGate(deps.poiRepo, deps.tourRepo, cfg.MinDescriptionLength)
	tourRouteUseCase := usecase.NewTourRouteUseCase(deps.tourRepo, deps.poiRepo, gate)
	router := handler.NewRouter(handler.NewTourRouteHandler(tourRouteUseCase), deps.health)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go evictIdleSessions(janitorCtx, tourRouteUseCase, cfg.SessionIdleTimeout)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"store":   cfg.StoreBackend,
			"catalog": cfg.CatalogBackend,
		}).Info("🚀 TourRoute-App server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("サーバーの起動に失敗: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 サーバーを停止しています")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("シャットダウンに失敗しました")
	}
}

// evictIdleSessions 一定時間操作のないツアーを定期的にメモリから外す
func evictIdleSessions(ctx context.Context, uc usecase.TourRouteUseCase, idle time.Duration) {
	ticker := time.NewTicker(max(idle/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.EvictIdleSessions(idle)
		}
	}
}

// dependencies バックエンド設定に応じたリポジトリ群
type dependencies struct {
	tourRepo domainrepo.TourRepository
	poiRepo  domainrepo.POIStatusRepository
	health   handler.HealthChecker
	closers  []func() error
}

func (d *dependencies) close() {
	for _, c := range d.closers {
		if err := c(); err != nil {
			logrus.WithError(err).Warn("⚠️ クローズに失敗")
		}
	}
}

// sqlStore PostgreSQL / SQLite クライアントの共通部分
type sqlStore struct {
	client interface {
		Close() error
		HealthCheck(ctx context.Context) error
	}
	repoTours domainrepo.TourRepository
	repoPOIs  domainrepo.POIStatusRepository
}

func openPostgres(ctx context.Context, cfg *config.Config) (*sqlStore, error) {
	dsn, err := database.PostgresDSN(cfg.DatabaseURL, cfg.SupabaseURL, cfg.SupabaseDBPassword)
	if err != nil {
		return nil, err
	}
	client, err := database.NewPostgreSQLClient(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := client.Migrate(ctx); err != nil {
			client.Close()
			return nil, err
		}
	}
	return &sqlStore{
		client:    client,
		repoTours: repository.NewSQLToursRepository(client.DB, client.Dialect()),
		repoPOIs:  repository.NewSQLPOIStatusRepository(client.DB, client.Dialect()),
	}, nil
}

func openSQLite(ctx context.Context, cfg *config.Config) (*sqlStore, error) {
	client, err := database.NewSQLiteClient(ctx, cfg.SQLitePath, cfg.AutoMigrate)
	if err != nil {
		return nil, err
	}
	return &sqlStore{
		client:    client,
		repoTours: repository.NewSQLToursRepository(client.DB, client.Dialect()),
		repoPOIs:  repository.NewSQLPOIStatusRepository(client.DB, client.Dialect()),
	}, nil
}

func buildDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}
	var store *sqlStore
	var err error

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		store, err = openPostgres(ctx, cfg)
	case config.StoreBackendSQLite:
		store, err = openSQLite(ctx, cfg)
	case config.StoreBackendFirestore:
		fsClient, ferr := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID)
		if ferr != nil {
			return nil, ferr
		}
		deps.closers = append(deps.closers, fsClient.Close)
		deps.tourRepo = repository.NewFirestoreToursRepository(fsClient.GetClient())

		if cfg.CatalogBackend == config.CatalogBackendSQL {
			store, err = openPostgres(ctx, cfg)
		}
	}
	if err != nil {
		deps.close()
		return nil, err
	}

	if store != nil {
		deps.closers = append(deps.closers, store.client.Close)
		deps.health = func() error {
			hctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.client.HealthCheck(hctx)
		}
		if deps.tourRepo == nil {
			deps.tourRepo = store.repoTours
		}
		deps.poiRepo = store.repoPOIs
	}

	if cfg.CatalogBackend == config.CatalogBackendSupabase {
		supabaseClient, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			deps.close()
			return nil, err
		}
		deps.poiRepo = repository.NewSupabasePOIStatusRepository(supabaseClient, cfg.CatalogTimeout)
		if deps.health == nil {
			deps.health = supabaseClient.HealthCheck
		}
	}

	return deps, nil
}
