package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/config"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/events"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/ledger"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/memory"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/placeholder"
	redisstore "github.com/DanielPopoola/openfinance-gateway/internal/infrastructure/redis"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
	"github.com/DanielPopoola/openfinance-gateway/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type startable interface {
	Start(ctx context.Context)
}

type idempotencyStore interface {
	application.IdempotencyStore
	worker.ExpiredRecordPurger
}

type repositories struct {
	idempotency     idempotencyStore
	consents        application.ConsentRepository
	payments        application.PaymentRepository
	quotes          application.QuoteRepository
	deals           application.Repository[domain.Deal]
	payRequests     application.Repository[domain.PayRequest]
	vrpConsents     application.Repository[domain.VrpConsent]
	vrpPayments     application.VrpPaymentRepository
	accounts        application.Repository[domain.OnboardingAccount]
	insuranceQuotes application.InsuranceQuoteRepository
	bulkFiles       application.Repository[domain.BulkFile]
}

type gateway struct {
	handlers *handlers.Handlers
	workers  []startable
	closers  []func()
}

func (g *gateway) close() {
	for i := len(g.closers) - 1; i >= 0; i-- {
		g.closers[i]()
	}
}

// build connects the selected drivers and wires every service.
func build(ctx context.Context, cfg *config.Config, registry prometheus.Registerer, logger *slog.Logger) (*gateway, error) {
	g := &gateway{}
	health := map[string]handlers.HealthCheck{}
	clock := domain.SystemClock{}
	m := metrics.New(registry)

	repos, err := g.buildRepositories(ctx, cfg, health, logger)
	if err != nil {
		g.close()
		return nil, err
	}

	var redisClient *redisstore.Client
	if cfg.Cache.Driver == config.CacheRedis {
		redisClient, err = redisstore.New(ctx, cfg.Redis)
		if err != nil {
			g.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		g.closers = append(g.closers, func() { _ = redisClient.Close() })
		health["redis"] = redisClient.Health
	}

	var locker application.Locker = memory.NewKeyedLocker()
	if redisClient != nil {
		locker = redisstore.NewLocker(redisClient, cfg.Server.RequestTimeout, logger)
	}

	publisher, err := g.buildPublisher(cfg, m, logger)
	if err != nil {
		g.close()
		return nil, err
	}

	funds, directory, err := buildSandbox(cfg)
	if err != nil {
		g.close()
		return nil, err
	}

	riskLimit, err := decimal.NewFromString(cfg.Policy.RiskSinglePaymentLimit)
	if err != nil {
		g.close()
		return nil, fmt.Errorf("policy.risk_single_payment_limit: %w", err)
	}

	core := services.Core{
		Clock: clock,
		Idempotency: application.NewIdempotency(repos.idempotency, locker, clock, application.IdempotencyConfig{
			TTL:         cfg.Idempotency.TTL,
			LockTimeout: cfg.Idempotency.LockTimeout,
		}, m, logger),
		Authorizer: application.NewConsentAuthorizer(repos.consents),
		Locks:      application.NewResourceLocks(locker, cfg.Idempotency.LockTimeout),
		Events:     publisher,
		Metrics:    m,
		Logger:     logger,
	}

	quoteCache, err := newCache[domain.Quote](cfg, redisClient, "fx_quote", logger)
	if err != nil {
		g.close()
		return nil, err
	}
	vrpCache, err := newCache[domain.VrpConsent](cfg, redisClient, "vrp_consent", logger)
	if err != nil {
		g.close()
		return nil, err
	}
	accountCache, err := newCache[domain.OnboardingAccount](cfg, redisClient, "account", logger)
	if err != nil {
		g.close()
		return nil, err
	}
	reportCache, err := newCache[domain.BulkReport](cfg, redisClient, "bulk_report", logger)
	if err != nil {
		g.close()
		return nil, err
	}
	confirmationCache, err := newCache[services.Confirmation](cfg, redisClient, "payee_confirmation", logger)
	if err != nil {
		g.close()
		return nil, err
	}

	svc := handlers.Services{
		Consents: services.NewConsentService(core, repos.consents),
		Payments: services.NewPaymentService(core, repos.payments,
			placeholder.NewThresholdRisk(riskLimit, cfg.Sandbox.DeniedCreditors...), funds),
		FX: services.NewFXService(core, repos.quotes, repos.deals, placeholder.NewStaticRates(),
			quoteCache, cfg.Cache.TTL, cfg.Policy.FXQuoteValidity),
		PayRequests: services.NewPayRequestService(core, repos.payRequests),
		VRP: services.NewVRPService(core, repos.vrpConsents, repos.vrpPayments, locker,
			cfg.Policy.VRPLockTimeout, vrpCache, cfg.Cache.TTL),
		Onboarding: services.NewOnboardingService(core, repos.accounts, placeholder.PrefixKYC{},
			placeholder.DefaultSanctionsList(), accountCache, cfg.Cache.TTL),
		Insurance: services.NewInsuranceService(core, repos.insuranceQuotes, placeholder.NewRatedPremiums(),
			placeholder.NewSequentialIssuer("POL"), cfg.Policy.InsuranceQuoteValidity),
		Bulk: services.NewBulkPaymentService(core, repos.bulkFiles, reportCache, services.BulkConfig{
			MaxFileBytes:    cfg.Policy.BulkMaxFileBytes,
			PollsToComplete: cfg.Policy.BulkStatusPollsToComplete,
			ReportTTL:       cfg.Cache.TTL,
		}),
		Confirmation: services.NewConfirmationService(core, directory, cfg.Policy.CloseMatchThreshold,
			confirmationCache, cfg.Cache.TTL),
	}
	g.handlers = handlers.NewHandlers(svc, health, logger)

	g.workers = []startable{
		worker.NewScheduledPaymentWorker(svc.Payments, cfg.Worker.Interval, cfg.Worker.BatchSize, logger),
		worker.NewQuoteExpirationWorker(map[string]worker.StaleQuoteExpirer{
			"fx":        svc.FX,
			"insurance": svc.Insurance,
		}, cfg.Worker.Interval, cfg.Worker.BatchSize, logger),
		worker.NewIdempotencyPurgeWorker(repos.idempotency, clock, cfg.Worker.Interval, logger),
	}
	return g, nil
}

func (g *gateway) buildRepositories(ctx context.Context, cfg *config.Config, health map[string]handlers.HealthCheck, logger *slog.Logger) (repositories, error) {
	if cfg.Storage.Driver == config.StoragePostgres {
		db, err := postgres.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			return repositories{}, fmt.Errorf("connect database: %w", err)
		}
		g.closers = append(g.closers, db.Close)
		health["postgres"] = db.Health

		return repositories{
			idempotency:     postgres.NewIdempotencyRepository(db),
			consents:        postgres.NewConsentRepository(db),
			payments:        postgres.NewPaymentRepository(db),
			quotes:          postgres.NewQuoteRepository(db),
			deals:           postgres.NewDealRepository(db),
			payRequests:     postgres.NewPayRequestRepository(db),
			vrpConsents:     postgres.NewVrpConsentRepository(db),
			vrpPayments:     postgres.NewVrpPaymentRepository(db),
			accounts:        postgres.NewAccountRepository(db),
			insuranceQuotes: postgres.NewInsuranceQuoteRepository(db),
			bulkFiles:       postgres.NewBulkFileRepository(db),
		}, nil
	}

	store, err := memory.NewIdempotencyStore(cfg.Idempotency.Capacity)
	if err != nil {
		return repositories{}, fmt.Errorf("idempotency store: %w", err)
	}
	return repositories{
		idempotency:     store,
		consents:        memory.NewConsentRepository(),
		payments:        memory.NewPaymentRepository(),
		quotes:          memory.NewQuoteRepository(),
		deals:           memory.NewRepository[domain.Deal](),
		payRequests:     memory.NewRepository[domain.PayRequest](),
		vrpConsents:     memory.NewRepository[domain.VrpConsent](),
		vrpPayments:     memory.NewVrpPaymentRepository(),
		accounts:        memory.NewRepository[domain.OnboardingAccount](),
		insuranceQuotes: memory.NewInsuranceQuoteRepository(),
		bulkFiles:       memory.NewRepository[domain.BulkFile](),
	}, nil
}

func (g *gateway) buildPublisher(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (application.EventPublisher, error) {
	if cfg.Events.Driver != config.EventsKafka {
		return events.NewLogPublisher(logger, m), nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Kafka, logger, m)
	if err != nil {
		return nil, err
	}
	g.closers = append(g.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
		defer cancel()
		if err := publisher.Close(ctx); err != nil {
			logger.Error("failed to flush events", "error", err)
		}
	})
	return publisher, nil
}

func newCache[V any](cfg *config.Config, client *redisstore.Client, namespace string, logger *slog.Logger) (application.Cache[V], error) {
	if client != nil {
		return redisstore.NewCache[V](client, namespace, logger), nil
	}
	cache, err := memory.NewTTLCache[V](cfg.Cache.Capacity)
	if err != nil {
		return nil, fmt.Errorf("%s cache: %w", namespace, err)
	}
	return cache, nil
}

// buildSandbox returns the funds ledger and payee directory. With a ledger
// base URL the HTTP client is used and sandbox balances are ignored.
func buildSandbox(cfg *config.Config) (application.FundsReserver, *placeholder.AccountDirectory, error) {
	directory := placeholder.NewAccountDirectory()
	for _, entry := range cfg.Sandbox.Payees {
		iban, name, err := splitEntry(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("sandbox.payees: %w", err)
		}
		if err := directory.Register(iban, name); err != nil {
			return nil, nil, fmt.Errorf("sandbox.payees %q: %w", entry, err)
		}
	}

	if cfg.Ledger.BaseURL != "" {
		return ledger.NewRetryReserver(ledger.NewHTTPClient(cfg.Ledger), cfg.Retry), directory, nil
	}

	book := ledger.NewInMemoryLedger()
	for _, entry := range cfg.Sandbox.Balances {
		account, amount, err := splitEntry(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("sandbox.balances: %w", err)
		}
		balance, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, nil, fmt.Errorf("sandbox.balances %q: %w", entry, err)
		}
		book.Credit(account, balance)
	}
	return book, directory, nil
}

func splitEntry(entry string) (string, string, error) {
	key, value, ok := strings.Cut(entry, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return "", "", fmt.Errorf("entry %q is not key=value", entry)
	}
	return key, value, nil
}
