package cmd

import (
	"fmt"
	"time"

	"beedee/bot/events"
	"beedee/bot/handlers"
	"beedee/bot/notifier"
	"beedee/bot/store"
	"beedee/bot/tasks"
	"beedee/internal/config"
	"beedee/internal/db"
	"beedee/internal/logger"
	"beedee/packages/cards"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the collaborators built once per process and shared by every invocation.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	db        *gorm.DB
	redis     *redis.Client
	store     *store.BirthdayStore
	notifier  notifier.Notifier
	responder *handlers.Responder
	scanner   *tasks.Scanner
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	a.db, err = openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, err
	}

	a.store = store.New(a.db,
		store.WithTable(cfg.Database.Table),
		store.WithLocation(loc),
		store.WithLogger(log.Named("store")),
	)

	a.notifier, err = newNotifier(cfg.Chat, log.Named("notifier"))
	if err != nil {
		return nil, err
	}

	gate := events.NewGate(cfg.Events.TrustedAgentPrefix, log.Named("gate"))
	dispatcher := handlers.NewDispatcher(a.store, a.notifier, log.Named("dispatcher"))
	a.responder = handlers.NewResponder(gate, dispatcher, log.Named("responder"))

	deduper, err := a.newDeduper()
	if err != nil {
		return nil, err
	}

	opts := []tasks.Option{
		tasks.WithSendInterval(cfg.Scan.SendInterval),
		tasks.WithLogger(log.Named("scan")),
	}
	if deduper != nil {
		opts = append(opts, tasks.WithDeduper(deduper))
	}
	if cfg.Scan.Cards {
		opts = append(opts, tasks.WithCards(cards.Renderer{Style: cards.DefaultStyle}))
	}
	a.scanner = tasks.NewScanner(a.store, a.notifier, opts...)

	return a, nil
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gdb, err := db.NewPostgresConnection(cfg.DSN, db.PostgresOpts{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		PingTimeout:     cfg.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return gdb, nil
}

func newNotifier(cfg config.ChatConfig, log *zap.Logger) (notifier.Notifier, error) {
	switch cfg.Provider {
	case "discord":
		if cfg.Discord.Token == "" || cfg.Discord.ChannelID == "" {
			return nil, fmt.Errorf("chat.discord.token and chat.discord.channel_id are required")
		}
		return notifier.NewDiscord(cfg.Discord.Token, cfg.Discord.ChannelID, log)
	default:
		if cfg.GroupMe.BotID == "" {
			return nil, fmt.Errorf("chat.groupme.bot_id is required")
		}
		return notifier.NewGroupMe(cfg.GroupMe.BotID, cfg.GroupMe.PostURL, cfg.GroupMe.Timeout, log), nil
	}
}

func (a *app) newDeduper() (tasks.Deduper, error) {
	switch a.cfg.Dedupe.Backend {
	case "redis":
		client, err := db.NewRedisClient(db.RedisOpts{
			Addr:        a.cfg.Redis.Addr,
			Password:    a.cfg.Redis.Password,
			DB:          a.cfg.Redis.DB,
			DialTimeout: a.cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		a.redis = client
		return tasks.NewRedisDeduper(client, a.cfg.Dedupe.TTL), nil
	case "memory":
		return tasks.NewMemoryDeduper(a.cfg.Dedupe.TTL), nil
	default:
		return nil, nil
	}
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.log.Sync()
}

// scheduleAt parses "15:04" into the form the scheduler expects.
func scheduleAt(at string) (string, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}
