// Package main запускает HTTP-сервер магазина фрешведжис.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/freshveggies-system/internal/catalog"
	"github.com/mmeshcher/freshveggies-system/internal/config"
	"github.com/mmeshcher/freshveggies-system/internal/delivery"
	"github.com/mmeshcher/freshveggies-system/internal/handler"
	"github.com/mmeshcher/freshveggies-system/internal/middleware"
	"github.com/mmeshcher/freshveggies-system/internal/repository"
	"github.com/mmeshcher/freshveggies-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pgRepo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pgRepo
	} else {
		sugar.Info("no database URI configured, using in-memory store")
		repo = repository.NewMemoryRepository()
	}

	var deliveryClient *delivery.Client
	if cfg.DeliverySystemAddress != "" {
		deliveryClient = delivery.NewClient(cfg.DeliverySystemAddress)
	}

	svc := service.NewService(repo, catalog.New(), deliveryClient, logger)
	svc.SetTaxRate(cfg.TaxRate)
	svc.SetPaymentDelay(2 * time.Second)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового процесса обновления статусов доставки
	g.Go(func() error {
		svc.StartDeliveryUpdates(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting freshveggies server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
