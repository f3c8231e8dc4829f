package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"shopcore/internal/cache"
	"shopcore/internal/config"
	"shopcore/internal/db"
	"shopcore/internal/events"
	"shopcore/internal/httpserver"
	"shopcore/internal/maintenance"
	"shopcore/internal/pricing"
	cartrepo "shopcore/internal/repository/cart"
	orderrepo "shopcore/internal/repository/order"
	productrepo "shopcore/internal/repository/product"
	stockrepo "shopcore/internal/repository/stock"
	userrepo "shopcore/internal/repository/user"
	cartsvc "shopcore/internal/service/cart"
	ordersvc "shopcore/internal/service/order"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		defer client.Close()
		productRepo = productrepo.NewCached(productRepo, cache.NewRedis(client, "shopcore"), cfg.ProductCacheTTL, logger)
		logger.Printf("product cache enabled via redis at %s", cfg.RedisAddr)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kp.Close()
		publisher = kp
		logger.Printf("publishing order events to kafka topic %s", cfg.KafkaTopic)
	}

	ledger := stockrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	userRepo := userrepo.NewPostgres(dbpool, logger)

	cartService := cartsvc.New(cartRepo, productRepo, ledger)
	orderService := ordersvc.New(ordersvc.Deps{
		Orders:    orderRepo,
		Carts:     cartRepo,
		Products:  productRepo,
		Users:     userRepo,
		Ledger:    ledger,
		Publisher: publisher,
		Logger:    logger,
	})

	taxRate, err := pricing.ParseTaxRate(cfg.DefaultTaxRate)
	if err != nil {
		logger.Fatalf("parse DEFAULT_TAX_RATE %q: %v", cfg.DefaultTaxRate, err)
	}

	janitor := maintenance.NewJanitor(cartRepo, maintenance.JanitorConfig{
		AbandonAfter: cfg.CartAbandonAfter,
		ExpireAfter:  cfg.CartExpireAfter,
		Interval:     cfg.JanitorInterval,
	}, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Carts:    cartService,
		Orders:   orderService,
		Products: productRepo,
		Stock:    ledger,
		Adjuster: ledger.(stockrepo.Adjuster),
		TaxRate:  taxRate,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := janitor.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("server error: %v", err)
	}
	logger.Printf("server stopped")
}
