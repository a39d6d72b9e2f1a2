// Package bootstrap initializes infrastructure and wires the application
// services in dependency order.
package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/mufaro-dev/wabank/core/bank"
	coreconfig "github.com/mufaro-dev/wabank/core/config"
	coredatabase "github.com/mufaro-dev/wabank/core/database"
	"github.com/mufaro-dev/wabank/core/dialog"
	"github.com/mufaro-dev/wabank/core/gateway/paynow"
	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/notify"
	"github.com/mufaro-dev/wabank/core/session"
	"github.com/mufaro-dev/wabank/core/settlement"
	"github.com/mufaro-dev/wabank/core/web"
)

// Options control the bootstrap pipeline. The hooks exist so tests can stub
// infrastructure; nil hooks use the real implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(logger.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes everything initialized by the pipeline.
type Result struct {
	DB          *sqlx.DB
	Store       bank.Store
	Sessions    session.Store
	Coordinator *session.Coordinator
	Dispatcher  *notify.Dispatcher
	Settlement  *settlement.Protocol
	Handler     http.Handler

	redis *redis.Client
}

// Close releases resources in reverse initialization order.
func (r *Result) Close() {
	if r.Dispatcher != nil {
		r.Dispatcher.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
}

// Run initializes the logger, connects to the database, applies migrations,
// and wires the conversation and settlement services onto the HTTP handler.
func Run(opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg.Logging); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	res := &Result{DB: db}
	res.Store = bank.NewSQLStore(db)

	res.Sessions, res.redis, err = buildSessionStore(cfg.Session)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sender := notify.NewTwilioSender(cfg.WhatsApp.AccountSID, cfg.WhatsApp.AuthToken, cfg.WhatsApp.SenderID)
	res.Dispatcher = notify.NewDispatcher(sender, notify.Options{})

	charger := paynow.NewClient(paynow.Options{
		IntegrationID:  cfg.Paynow.IntegrationID,
		IntegrationKey: cfg.Paynow.IntegrationKey,
		InitiateURL:    cfg.Paynow.InitiateURL,
		ResultURL:      cfg.Server.PublicURL + "/api/webhooks/paynow",
		AuthEmail:      cfg.Paynow.MerchantEmail,
	})

	transfers := bank.NewTransfers(res.Store, res.Dispatcher)
	engine := dialog.NewEngine(res.Store, charger, transfers, cfg.Dialog.SupportContact)
	res.Coordinator = session.NewCoordinator(res.Sessions, engine)
	res.Settlement = settlement.NewProtocol(res.Store, charger, res.Dispatcher)

	res.Handler = web.NewRouter(web.Options{
		Coordinator: res.Coordinator,
		Notifier:    res.Dispatcher,
		Settlement:  res.Settlement,
		SenderID:    cfg.WhatsApp.SenderID,
		FakePaid:    cfg.Paynow.FakePaid,
	})
	return res, nil
}

func buildSessionStore(cfg coreconfig.SessionConfig) (session.Store, *redis.Client, error) {
	switch cfg.Backend {
	case coreconfig.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return session.NewRedisStore(client, cfg.TTL), client, nil
	default:
		return session.NewMemoryStore(), nil, nil
	}
}
