package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"staysync/internal/app/commands"
	availabilityapp "staysync/internal/app/handlers/availability"
	bookingapp "staysync/internal/app/handlers/booking"
	"staysync/internal/app/middleware"
	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/app/queries"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	domainsettlement "staysync/internal/domain/settlement"
	"staysync/internal/domain/shared/money"
	"staysync/internal/infra/broker/kafka"
	"staysync/internal/infra/config"
	"staysync/internal/infra/db/mongo"
	ginserver "staysync/internal/infra/http/gin"
	"staysync/internal/infra/invoicing"
	"staysync/internal/infra/obs"
	infraoutbox "staysync/internal/infra/outbox"
	"staysync/internal/infra/storage/memory"
	redisstore "staysync/internal/infra/storage/redis"
	"staysync/internal/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	if err := app.loadFixtures(ctx, cfg.FixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	ready    func() error
	repos    struct {
		properties *memory.PropertyRepository
		categories *memory.CategoryRepository
		agents     *memory.AgentRepository
		rules      *memory.RuleRepository
	}
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	var app application

	propertiesRepo := memory.NewPropertyRepository()
	categoriesRepo := memory.NewCategoryRepository()
	agentsRepo := memory.NewAgentRepository()
	rulesRepo := memory.NewRuleRepository()
	app.repos.properties = propertiesRepo
	app.repos.categories = categoriesRepo
	app.repos.agents = agentsRepo
	app.repos.rules = rulesRepo

	// Transactional state can live in Mongo; reference data is fixture-fed.
	uowFactory := memory.Factory{
		PropertiesRepo: propertiesRepo,
		CategoriesRepo: categoriesRepo,
		AgentsRepo:     agentsRepo,
		RulesRepo:      rulesRepo,
		BookingsRepo:   memory.NewBookingRepository(),
	}
	var outboxStore interface {
		appoutbox.Outbox
		infraoutbox.Store
	} = memory.NewOutboxStore()

	app.ready = func() error { return nil }
	if cfg.MongoURI != "" {
		client, err := mongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		uowFactory.BookingsRepo = mongo.NewBookingRepository(client.DB)
		outboxStore = mongo.NewOutboxStore(client.DB)
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		logger.Info("booking storage: mongo", "db", cfg.MongoDB)
	} else {
		logger.Info("booking storage: memory")
	}

	var idStore middleware.IdempotencyStore = memory.NewIdempotencyStore()
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		idStore = redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		logger.Info("idempotency storage: redis", "addr", cfg.RedisAddr)
	}

	hub := realtime.NewHub(cfg.SyncBufferSize, logger)
	emitter := invoicing.NewEmitter(logger)

	sinks := []infraoutbox.Sink{
		infraoutbox.HubSink{Hub: hub},
		infraoutbox.InvoicingSink{UoWFactory: uowFactory, Invoicing: emitter},
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return application{}, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, infraoutbox.CloudEventsSink{
			Producer:    producer,
			TopicPrefix: cfg.KafkaTopicPrefix,
		})
		logger.Info("event broker: kafka", "brokers", cfg.KafkaBrokers)
	}
	app.worker = &infraoutbox.Worker{
		Store:    outboxStore,
		Sinks:    sinks,
		Interval: cfg.OutboxPollInterval,
		Backoff:  cfg.RetryBackoff,
		Logger:   logger,
	}

	channels := channelRates(cfg.ChannelCommission)

	commandBus := commands.NewInMemoryBus()
	reserveHandler := &bookingapp.ReserveStayHandler{
		UoWFactory: uowFactory,
		Channels:   channels,
		Outbox:     outboxStore,
		Encoder:    appoutbox.JSONEventEncoder{},
	}
	commands.RegisterHandler(commandBus, bookingapp.ReserveStayCommand{}.Key(), reserveHandler)
	statusHandler := &bookingapp.ChangeStatusHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    appoutbox.JSONEventEncoder{},
	}
	commands.RegisterHandler(commandBus, bookingapp.ChangeStatusCommand{}.Key(), statusHandler)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.QuoteStayQuery{}.Key(), &bookingapp.QuoteStayHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.GetSettlementQuery{}.Key(), &bookingapp.GetSettlementHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListBookingsQuery{}.Key(), &bookingapp.ListBookingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, availabilityapp.CheckQuery{}.Key(), &availabilityapp.CheckHandler{UoWFactory: uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus, middleware.QueryLogging(logger))

	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
		},
		Availability: ginserver.AvailabilityHandler{
			Queries: queryBusWithMiddleware,
		},
		Sync: ginserver.NewSyncHandler(hub, logger),
	}
	return app, nil
}

// channelRates layers configured overrides on top of the default table.
func channelRates(overrides map[string]float64) domainsettlement.ChannelRates {
	rates := domainsettlement.DefaultChannelRates()
	for name, pct := range overrides {
		rates[domainsettlement.Channel(name)] = pct
	}
	return rates
}

func (a application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range fixtures.Categories {
		cat := &domainproperty.SeasonCategory{
			ID:       domainproperty.CategoryID(fx.ID),
			Name:     fx.Name,
			LowFee:   money.Money{Amount: fx.LowFee, Currency: fx.Currency},
			HighFee:  money.Money{Amount: fx.HighFee, Currency: fx.Currency},
			Currency: fx.Currency,
		}
		if err := a.repos.categories.Save(ctx, cat); err != nil {
			logger.Error("cannot store fixture category", "category_id", fx.ID, "error", err)
		}
	}
	for _, fx := range fixtures.Agents {
		agent := &domainproperty.BookingAgent{Name: fx.Name, CommissionPercent: fx.CommissionPercent}
		if err := a.repos.agents.Save(ctx, agent); err != nil {
			logger.Error("cannot store fixture agent", "agent", fx.Name, "error", err)
		}
	}
	for _, fx := range fixtures.Properties {
		prop := &domainproperty.Property{
			ID:          domainproperty.PropertyID(fx.ID),
			OwnerID:     fx.OwnerID,
			Name:        fx.Name,
			BaseNightly: money.Money{Amount: fx.BaseNightly, Currency: fx.Currency},
			CategoryID:  domainproperty.CategoryID(fx.CategoryID),
			Capacity:    fx.Capacity,
		}
		if err := a.repos.properties.Save(ctx, prop); err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
			continue
		}
		logger.Info("property fixture imported", "property_id", fx.ID)
	}
	for _, fx := range fixtures.Rules {
		rule, err := fx.toRule()
		if err != nil {
			logger.Error("fixture rule invalid", "rule_id", fx.ID, "error", err)
			continue
		}
		if err := a.repos.rules.Save(ctx, rule); err != nil {
			logger.Error("cannot store fixture rule", "rule_id", fx.ID, "error", err)
		}
	}
	return nil
}

type fixtureFile struct {
	Categories []categoryFixture `json:"categories"`
	Agents     []agentFixture    `json:"agents"`
	Properties []propertyFixture `json:"properties"`
	Rules      []ruleFixture     `json:"rules"`
}

type categoryFixture struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LowFee   int64  `json:"low_fee"`
	HighFee  int64  `json:"high_fee"`
	Currency string `json:"currency"`
}

type agentFixture struct {
	Name              string  `json:"name"`
	CommissionPercent float64 `json:"commission_percent"`
}

type propertyFixture struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	BaseNightly int64  `json:"base_nightly"`
	Currency    string `json:"currency"`
	CategoryID  string `json:"category_id"`
	Capacity    int    `json:"capacity"`
}

type ruleFixture struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	Kind       string `json:"kind"`
	Entries    []struct {
		Date  string `json:"date"`
		Price int64  `json:"price"`
	} `json:"entries"`
	Month  int `json:"month"`
	Year   int `json:"year"`
	Blocks []struct {
		StartDay int   `json:"start_day"`
		EndDay   int   `json:"end_day"`
		Price    int64 `json:"price"`
	} `json:"blocks"`
	Currency string `json:"currency"`
}

func (fx ruleFixture) toRule() (domainpricing.Rule, error) {
	rule := domainpricing.Rule{
		ID:         fx.ID,
		PropertyID: domainproperty.PropertyID(fx.PropertyID),
		Kind:       domainpricing.RuleKind(fx.Kind),
		Month:      time.Month(fx.Month),
		Year:       fx.Year,
	}
	for _, e := range fx.Entries {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return domainpricing.Rule{}, err
		}
		rule.Entries = append(rule.Entries, domainpricing.DateEntry{
			Date:  date,
			Price: money.Money{Amount: e.Price, Currency: fx.Currency},
		})
	}
	for _, b := range fx.Blocks {
		rule.Blocks = append(rule.Blocks, domainpricing.DayBlock{
			StartDay: b.StartDay,
			EndDay:   b.EndDay,
			Price:    money.Money{Amount: b.Price, Currency: fx.Currency},
		})
	}
	return rule, rule.Validate()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
