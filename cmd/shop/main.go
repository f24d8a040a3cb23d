package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/idempotency"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/realtime"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
)

func main() {
	cfg, err := config.Load(envOr("SHOP_CONFIG_DIR", "configs"))
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.App.LogLevel, cfg.App.LogFile).With("app", cfg.App.Name)
	slog.SetDefault(log)

	ctx := context.Background()

	gdb, err := db.Open(ctx, db.Options{
		Driver:          cfg.DB.Driver,
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	if err != nil {
		log.Error("db_error", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Error("db_migrate_error", "error", err)
		os.Exit(1)
	}

	var events service.EventPublisher
	var producer *mykafka.Producer
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		producer, err = mykafka.NewProducer(brokers)
		if err != nil {
			log.Error("kafka_error", "error", err)
			os.Exit(1)
		}
		events = producer
	} else {
		log.Warn("kafka_disabled", "reason", "kafka.brokers not set")
	}

	var index service.ProductIndex
	if cfg.Elasticsearch.URL != "" {
		es, err := search.NewClient(ctx, cfg.Elasticsearch.URL, cfg.Elasticsearch.User, cfg.Elasticsearch.Password)
		if err != nil {
			log.Warn("elasticsearch_unavailable", "error", err)
		} else {
			index = search.NewIndex(es, cfg.Elasticsearch.Index)
		}
	}

	var idem service.IdempotencyStore
	var closeRedis func() error
	if cfg.Redis.Addr != "" {
		rdb, err := idempotency.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("redis_error", "error", err)
			os.Exit(1)
		}
		idem = idempotency.NewRedisStore(rdb, cfg.Idempotency.TTL)
		closeRedis = rdb.Close
	} else {
		log.Warn("idempotency_disabled", "reason", "redis.addr not set")
	}

	tolerance, err := cfg.PriceTolerance()
	if err != nil {
		log.Error("config_error", "error", err)
		os.Exit(1)
	}
	tokens := &auth.Tokens{
		AccessSecret:  []byte(cfg.Auth.JWTSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		Issuer:        cfg.Auth.Issuer,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	}
	hub := realtime.NewHub(log, allowOrigins(cfg.CORSOrigins()))
	r := repo.New(gdb)

	e := httpserver.NewEcho(log, httpserver.Options{
		CORSOrigins:   cfg.CORSOrigins(),
		SecureCookies: cfg.HTTP.SecureCookies,
	})
	httpserver.Register(e, &httpserver.Deps{
		DB:     gdb,
		Tokens: tokens,
		Orders: &httpserver.OrderHandler{Svc: &service.OrderService{
			Repo: r, Events: events, Idem: idem, Index: index, PriceTolerance: tolerance,
		}},
		Products: &httpserver.ProductHandler{Svc: &service.CatalogService{Repo: r, Events: events, Index: index}},
		Auth:     &httpserver.AuthHandler{Svc: &service.AuthService{Repo: r, Tokens: tokens, Events: events}, SecureCookies: cfg.HTTP.SecureCookies},
		Profile:  &httpserver.ProfileHandler{Svc: &service.UserService{Repo: r}},
		Messages: &httpserver.MessageHandler{Svc: &service.MessageService{Repo: r, Events: events, Notifier: hub}, Hub: hub},
	})

	srv := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           e,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info("http_listen", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	go func() {
		<-quit
		log.Warn("force_exit")
		os.Exit(1)
	}()

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_error", "error", err)
	}
	if err := producer.Close(); err != nil {
		log.Error("kafka_close_error", "error", err)
	}
	if closeRedis != nil {
		if err := closeRedis(); err != nil {
			log.Error("redis_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		log.Error("db_close_error", "error", err)
	}
	log.Info("shutdown_complete")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// allowOrigins accepts same-host websocket handshakes and any configured
// CORS origin.
func allowOrigins(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(origins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
