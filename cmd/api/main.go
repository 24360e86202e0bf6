package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"escrow-ledger/internal/adapter/gateway"
	httpadp "escrow-ledger/internal/adapter/http"
	idemp "escrow-ledger/internal/adapter/middleware"
	"escrow-ledger/internal/adapter/notify"
	"escrow-ledger/internal/adapter/repository/mysql"
	"escrow-ledger/internal/config"
	"escrow-ledger/internal/infrastructure/cache"
	"escrow-ledger/internal/infrastructure/db"
	"escrow-ledger/internal/infrastructure/logging"
	promadp "escrow-ledger/internal/infrastructure/metrics/prometheus"
	"escrow-ledger/internal/usecase"
	"escrow-ledger/internal/usecase/disbursement"
	"escrow-ledger/internal/usecase/escrow"
	"escrow-ledger/internal/usecase/ledger"
	"escrow-ledger/internal/usecase/payout"
	"escrow-ledger/internal/usecase/paymentmethod"
	"escrow-ledger/internal/usecase/transfer"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), logger)
	if err != nil {
		logger.Fatal("open mysql", zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB, logger)
	if err != nil {
		logger.Fatal("open redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := promadp.NewCollector(cfg.MetricsNamespace)
	if err := mc.Register(reg); err != nil {
		logger.Fatal("register metrics", zap.Error(err))
	}

	gw := gateway.NewResilient(gateway.NewSandbox(), gateway.ResilientConfig{
		Name:    "payment-gateway",
		Timeout: cfg.GatewayTimeout,
		Breaker: gateway.BreakerConfig{
			MaxRequests: cfg.BreakerHalfOpenMaxReqs,
			OpenTimeout: cfg.BreakerOpenTimeout,
			MaxFailures: cfg.BreakerMaxFailures,
		},
	}, logger, mc)

	deps := usecase.Deps{
		UoW:      mysql.NewGormUoW(gdb),
		Gateway:  gw,
		Notifier: notify.NewLogger(logger),
		Loans:    mysql.NewLoanStatus(gdb),
		Effects:  notify.NewDispatcher(logger, mc),
		Logger:   logger,
		Metrics:  mc,
	}
	handlers := httpadp.Handlers{
		Health: httpadp.NewHandler(gw),
		Escrow: httpadp.NewEscrowHandler(
			escrow.NewUsecase(deps.With("escrow"), escrow.Config{Currency: cfg.Currency}), logger),
		Transactions: httpadp.NewTransactionHandler(
			ledger.NewUsecase(deps.With("ledger"), ledger.Config{WebhookSecret: cfg.WebhookSecret}), logger),
		Transfers: httpadp.NewTransferHandler(transfer.NewUsecase(deps.With("transfer")), logger),
		Payouts: httpadp.NewPayoutHandler(
			payout.NewUsecase(deps.With("payout"), payout.Config{
				FeePercent: cfg.PayoutFeePercent,
				FeeFixed:   cfg.PayoutFeeFixed,
				Currency:   cfg.Currency,
			}), logger),
		Disbursements: httpadp.NewDisbursementHandler(
			disbursement.NewUsecase(deps.With("disbursement"), disbursement.Config{
				Window:   cfg.DisbursementWindow,
				Currency: cfg.Currency,
			}), logger),
		PaymentMethods: httpadp.NewPaymentMethodHandler(paymentmethod.NewUsecase(deps.With("payment_method")), logger),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}))

	// routes
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	httpadp.Register(e, handlers, idemp.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL(), logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.AppPort
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
