package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/escrow-ledger/internal/authz"
	"github.com/ignatzorin/escrow-ledger/internal/clock"
	"github.com/ignatzorin/escrow-ledger/internal/config"
	"github.com/ignatzorin/escrow-ledger/internal/db"
	"github.com/ignatzorin/escrow-ledger/internal/domain/repository"
	"github.com/ignatzorin/escrow-ledger/internal/events"
	httpHandlers "github.com/ignatzorin/escrow-ledger/internal/http/handlers"
	httpRouter "github.com/ignatzorin/escrow-ledger/internal/http/router"
	"github.com/ignatzorin/escrow-ledger/internal/infrastructure/memory"
	"github.com/ignatzorin/escrow-ledger/internal/infrastructure/persistence"
	"github.com/ignatzorin/escrow-ledger/internal/lock"
	"github.com/ignatzorin/escrow-ledger/internal/logger"
	"github.com/ignatzorin/escrow-ledger/internal/service"
	"github.com/ignatzorin/escrow-ledger/internal/transfer"
	"github.com/ignatzorin/escrow-ledger/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init(cfg.LogLevel)
	}

	clk := clock.System()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("main: ошибка подключения к redis")
		}
		defer rdb.Close()
	}

	// Хранилище и реестр переводов.
	var (
		dbConn      *sqlx.DB
		escrowRepo  repository.EscrowRepository
		authRepo    repository.AuthorizationRepository
		moneyLedger transfer.Ledger
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("main: ошибка подключения к базе")
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			logger.Log.WithError(err).Fatal("main: ошибка миграций")
		}
		escrowRepo = persistence.NewEscrowRepository(dbConn)
		authRepo = persistence.NewAuthorizationRepository(dbConn)
		moneyLedger = transfer.NewPostgresLedger(dbConn, clk)
	default:
		logger.Log.Warn("main: используется хранилище в памяти, данные не переживут перезапуск")
		escrowRepo = memory.NewEscrowStore()
		authRepo = memory.NewAuthorizationStore()
		moneyLedger = transfer.NewMemoryLedger(clk)
	}

	for party, amount := range cfg.SeedBalances {
		seeded, err := moneyLedger.Seed(ctx, transfer.Account(party), amount)
		if err != nil {
			logger.Log.WithError(err).WithField("party", party).Fatal("main: не удалось пополнить стартовый баланс")
		}
		if !seeded {
			logger.Log.WithField("party", party).Info("main: счёт уже заведён, стартовый баланс пропущен")
		}
	}

	// Блокировки по ключу записи.
	var locker lock.Locker
	if cfg.LockDriver == config.LockRedis {
		opts := lock.DefaultRedisOptions()
		opts.Expiry = cfg.LockTTL
		locker = lock.NewRedisLocker(rdb, opts)
	} else {
		locker = lock.NewKeyedMutex()
	}

	// Вебсокеты и события.
	hub := ws.NewHub()
	hubPublisher := events.NewHubPublisher(hub)

	var publisher events.Publisher = hubPublisher
	if rdb != nil {
		// Каждый экземпляр доставляет события из Redis своим WebSocket клиентам
		publisher = events.NewRedisPublisher(rdb)
		subscriber := events.NewRedisSubscriber(rdb)
		for _, stream := range []string{events.StreamEscrow, events.StreamAuthorization} {
			err := subscriber.Subscribe(ctx, stream, func(e events.Event) {
				_ = hubPublisher.Publish(ctx, e)
			})
			if err != nil {
				logger.Log.WithError(err).Fatal("main: ошибка подписки на события")
			}
		}
	}
	publisher = events.NewAsync(publisher, 5*time.Second)

	// Реестры.
	admins := authz.NewAdminSet(cfg.AdminPartyIDs)
	escrowLedger := service.NewEscrowLedger(escrowRepo, moneyLedger, locker, clk, publisher)
	authLedger := service.NewAuthorizationLedger(authRepo, moneyLedger, locker, clk, publisher, admins)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// HTTP хэндлеры.
	var healthRedis redis.UniversalClient
	if rdb != nil {
		healthRedis = rdb
	}
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Escrow:         httpHandlers.NewEscrowHandler(escrowLedger, admins, cfg.AmountDecimals),
		Authorizations: httpHandlers.NewAuthorizationHandler(authLedger, cfg.AmountDecimals),
		Accounts:       httpHandlers.NewAccountHandler(moneyLedger, cfg.AmountDecimals),
		WS:             httpHandlers.NewWSHandler(hub, tokenManager),
		Health:         httpHandlers.NewHealthHandler(dbConn, healthRedis),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Log.WithFields(logrus.Fields{
			"port":    cfg.HTTPPort,
			"storage": cfg.StorageDriver,
			"lock":    cfg.LockDriver,
			"admins":  admins.Len(),
		}).Info("main: HTTP сервер запущен")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Завершаем сервер при получении сигнала или падении соседней горутины.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("main: сервер завершился с ошибкой")
	}
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
