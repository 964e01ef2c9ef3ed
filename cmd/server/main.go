package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jwZhang-1102/goodsManagement/internal/config"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/catalog"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/orders"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/suppliers"
	"github.com/jwZhang-1102/goodsManagement/internal/domain/warehouses"
	"github.com/jwZhang-1102/goodsManagement/internal/infra/cache"
	"github.com/jwZhang-1102/goodsManagement/internal/infra/db"
	httpx "github.com/jwZhang-1102/goodsManagement/internal/infra/http"
	"github.com/jwZhang-1102/goodsManagement/internal/infra/logger"
	"github.com/jwZhang-1102/goodsManagement/internal/infra/metrics"
	"github.com/jwZhang-1102/goodsManagement/internal/infra/notify"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx, cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	pool, err := db.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	products := catalog.NewRepo(pool)
	whs := warehouses.NewRepo(pool)

	var (
		items     inventory.ItemResolver     = products
		locations inventory.LocationResolver = whs
		names     httpx.NameCache
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, names are read from postgres until it recovers", "err", err)
		}
		c := cache.NewNames(rdb, cfg.Redis.TTL, products, whs, log)
		items, locations, names = c, c, c
	}

	reg := prometheus.DefaultRegisterer
	observers := []inventory.Observer{metrics.NewTransfers(reg)}

	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return
		}
		lowStock := notify.NewLowStock(api, cfg.Telegram.AdminChatID, log, 0)
		go lowStock.Run(ctx)
		observers = append(observers, lowStock)
		log.Info("low-stock alerts enabled", "bot", api.Self.UserName)
	}

	store := inventory.NewPGStore(pool)
	ledger := inventory.NewLedger(store, cfg.Inventory.LockTimeout)
	history := inventory.NewHistory(store, cfg.Inventory.HistoryLimit)
	coord := inventory.NewCoordinator(ledger, history, items, locations, log, observers...)

	workers := inventory.NewPool(coord, cfg.Inventory.Workers, cfg.Inventory.QueueSize, log)
	defer workers.Close()

	deps := httpx.Deps{
		Log:        log,
		Transfers:  workers,
		Stock:      ledger,
		History:    history,
		Products:   products,
		Categories: products,
		Warehouses: whs,
		Suppliers:  suppliers.NewRepo(pool),
		Orders:     orders.NewRepo(pool),
		Names:      names,
		Metrics:    metrics.NewHTTP(reg),
	}
	if cfg.Metrics.Enabled {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	srv := httpx.New(httpx.Options{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, deps)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
