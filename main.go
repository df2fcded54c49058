// Package main provides the main entry point for the SMM panel API and its order pollers
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/smm-panel/app/handlers"
	"github.com/amirphl/smm-panel/app/logger"
	"github.com/amirphl/smm-panel/app/middleware"
	"github.com/amirphl/smm-panel/app/router"
	"github.com/amirphl/smm-panel/app/scheduler"
	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/config"
	"github.com/amirphl/smm-panel/migrations"
	"github.com/amirphl/smm-panel/repository"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file read before the environment")
	migrateOnly := pflag.Bool("migrate", false, "apply database migrations and exit")
	skipMigrations := pflag.Bool("skip-migrations", false, "do not apply migrations on startup")
	noPollers := pflag.Bool("no-pollers", false, "serve HTTP only; leave order reconciliation to another instance")
	pflag.Parse()

	cfg, err := config.LoadProductionConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}).With(zap.String("env", cfg.Deployment.Environment), zap.String("version", cfg.Deployment.Version))
	defer func() { _ = log.Sync() }()

	db, err := initializeDatabase(cfg.Database, log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	if *migrateOnly || !*skipMigrations {
		if err := runMigrations(db); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
		log.Info("migrations applied")
		if *migrateOnly {
			return
		}
	}

	if *noPollers {
		cfg.Scheduler.Enabled = false
	}

	app, err := initializeApplication(cfg, db, log)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}
	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		serveErr <- app.router.Start(address)
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		log.Error("server stopped unexpectedly", zap.Error(err))
	}

	// pollers first, so no cycle starts against a draining server
	for _, fn := range app.stopFuncs {
		fn()
	}
	if err := app.router.Shutdown(cfg.Server.ShutdownTimeout); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormLog := gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
		SlowThreshold:             cfg.SlowQueryTime,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))
	return db, nil
}

func runMigrations(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return migrations.Up(ctx, sqlDB)
}

// initializeCache connects to redis when enabled. A nil client means
// single-instance mode.
func initializeCache(cfg config.CacheConfig, log *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connection established", zap.Int("db", opt.DB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings redis. The returned function stops it.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, log *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeNotificationService(cfg *config.ProductionConfig, log *zap.Logger) services.NotificationService {
	var provider services.EmailProvider
	switch cfg.Email.Provider {
	case "smtp":
		provider = services.NewSMTPEmailProvider(cfg.Email.Host, cfg.Email.Port, cfg.Email.Username, cfg.Email.Password, cfg.Email.FromEmail)
	default:
		provider = services.NewLogEmailProvider(log.Named("email"))
	}
	return services.NewNotificationService(provider, cfg.Admin.Email)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, db *gorm.DB, log *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	rc, err := initializeCache(cfg.Cache, log)
	if err != nil {
		return nil, err
	}

	var (
		locker services.Locker = services.LocalLocker{}
		cache  redis.Cmdable
	)
	if rc != nil {
		locker = services.NewRedisLocker(rc, cfg.Cache.RedisPrefix)
		cache = rc
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second, log))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	// Repositories
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	pendingRepo := repository.NewPendingDepositRepository(db)
	countedRepo := repository.NewCountedDepositRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	refWithdrawRepo := repository.NewReferralWithdrawalRepository(db)
	bankRepo := repository.NewBankAccountRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	smmRepo := repository.NewSMMOrderRepository(db)
	smsRepo := repository.NewSMSOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	notifier := initializeNotificationService(cfg, log)
	events := services.NewLocalEventBus(32)
	breaker := services.DefaultBreakerSettings()

	gateway := services.NewCryptomusClient(services.CryptomusClientConfig{
		BaseURL:    cfg.Cryptomus.BaseURL,
		MerchantID: cfg.Cryptomus.MerchantID,
		APIKey:     cfg.Cryptomus.APIKey,
		Timeout:    cfg.Cryptomus.Timeout,
		Breaker:    breaker,
	}, log.Named("cryptomus"))
	rates := services.NewExchangeRateCache(services.ExchangeRateConfig{
		BaseURL:  cfg.ExchangeRate.BaseURL,
		TTL:      cfg.ExchangeRate.TTL,
		MaxStale: cfg.ExchangeRate.MaxStale,
		Timeout:  cfg.ExchangeRate.Timeout,
		Breaker:  breaker,
	}, cache, log.Named("exchange_rate"))
	smm := services.NewSMMPanelClient(services.SMMProviderConfig{
		BaseURL: cfg.SMMProvider.BaseURL,
		APIKey:  cfg.SMMProvider.APIKey,
		Timeout: cfg.SMMProvider.Timeout,
		Breaker: breaker,
	}, log.Named("smm_provider"))
	sms := services.NewSMSPoolClient(services.SMSProviderConfig{
		BaseURL: cfg.SMSProvider.BaseURL,
		APIKey:  cfg.SMSProvider.APIKey,
		Timeout: cfg.SMSProvider.Timeout,
		Breaker: breaker,
	}, log.Named("sms_provider"))

	// Business flows
	ledger := businessflow.NewLedger(tx, userRepo, txRepo, notifRepo, auditRepo, log.Named("ledger"))
	referrals := businessflow.NewReferralFlow(tx, userRepo, countedRepo, referralRepo, commissionRepo, refWithdrawRepo,
		bankRepo, notifRepo, auditRepo, cfg.Referral.MinWithdrawal, log.Named("referral"))
	deposits := businessflow.NewDepositFlow(tx, userRepo, pendingRepo, txRepo, auditRepo, gateway, rates, notifier,
		cfg.Deposit, cfg.Cryptomus, log.Named("deposit"))
	review := businessflow.NewAdminDepositFlow(tx, userRepo, pendingRepo, txRepo, notifRepo, auditRepo, ledger, referrals,
		notifier, events, log.Named("deposit_review"))
	webhook := businessflow.NewCryptomusWebhookFlow(tx, userRepo, txRepo, auditRepo, ledger, gateway, rates, events,
		cfg.Cryptomus.WebhookIPs, log.Named("cryptomus_webhook"))
	withdrawals := businessflow.NewWithdrawalFlow(tx, userRepo, bankRepo, withdrawalRepo, txRepo, notifRepo, auditRepo,
		ledger, log.Named("withdrawal"))
	orders := businessflow.NewOrderFlow(tx, userRepo, smmRepo, smsRepo, productRepo, auditRepo, ledger, smm, sms, rates,
		cfg.SMMProvider, cfg.SMSProvider, log.Named("orders"))
	auth := businessflow.NewAuthFlow(userRepo, adminRepo, auditRepo, tokenService, cfg.JWT.AccessTokenTTL, log.Named("auth"))

	if cfg.Scheduler.Enabled {
		reconciler := businessflow.NewOrderReconciler(tx, userRepo, txRepo, smmRepo, smsRepo, auditRepo, ledger, smm, sms,
			events, cfg.Scheduler.SMMBatchSize, log.Named("reconciler"))
		smsPoller := scheduler.NewSMSPoller(reconciler, cfg.Scheduler, locker, log)
		smmPoller := scheduler.NewSMMPoller(reconciler, cfg.Scheduler, locker, log)
		stopFuncs = append([]func(){smsPoller.Start(context.Background()), smmPoller.Start(context.Background())}, stopFuncs...)
	} else {
		log.Info("order pollers disabled")
	}

	r := router.NewFiberRouter(router.Handlers{
		Auth:         handlers.NewAuthHandler(auth, log),
		Wallet:       handlers.NewWalletHandler(ledger, log),
		Deposit:      handlers.NewDepositHandler(deposits, webhook, cfg.Deposit.MaxProofSize, log),
		AdminDeposit: handlers.NewAdminDepositHandler(review, log),
		Withdrawal:   handlers.NewWithdrawalHandler(withdrawals, log),
		Referral:     handlers.NewReferralHandler(referrals, log),
		Order:        handlers.NewOrderHandler(orders, log),
		Events:       handlers.NewEventsHandler(events, log),
	}, middleware.NewAuthMiddleware(tokenService), cfg, log.Named("http"))

	return &Application{
		router:    r,
		config:    cfg,
		logger:    log,
		stopFuncs: stopFuncs,
	}, nil
}
