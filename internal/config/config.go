package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const envPrefix = "SHOP_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout       time.Duration `koanf:"read_timeout"`
		WriteTimeout      time.Duration `koanf:"write_timeout"`
		ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
		CORSOrigins       string        `koanf:"cors_origins"`
		SecureCookies     bool          `koanf:"secure_cookies"`
	} `koanf:"http"`

	DB struct {
		Driver          string        `koanf:"driver"`
		URL             string        `koanf:"url"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	} `koanf:"db"`

	Auth struct {
		JWTSecret     string        `koanf:"jwt_secret"`
		RefreshSecret string        `koanf:"refresh_secret"`
		Issuer        string        `koanf:"issuer"`
		AccessTTL     time.Duration `koanf:"access_ttl"`
		RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	} `koanf:"auth"`

	Kafka struct {
		Brokers string `koanf:"brokers"`
	} `koanf:"kafka"`

	Elasticsearch struct {
		URL      string `koanf:"url"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Index    string `koanf:"index"`
	} `koanf:"elasticsearch"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Orders struct {
		PriceTolerance string `koanf:"price_tolerance"`
	} `koanf:"orders"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":                 "storefront",
		"app.http_addr":            ":8080",
		"app.log_level":            "info",
		"http.read_timeout":        "10s",
		"http.write_timeout":       "15s",
		"http.read_header_timeout": "3s",
		"db.driver":                "postgres",
		"db.max_open_conns":        20,
		"db.max_idle_conns":        10,
		"db.conn_max_lifetime":     "30m",
		"db.conn_max_idle_time":    "5m",
		"auth.issuer":              "storefront",
		"auth.access_ttl":          "15m",
		"auth.refresh_ttl":         "168h",
		"elasticsearch.index":      "products",
		"idempotency.ttl":          "24h",
		"orders.price_tolerance":   "0",
	}
}

// Load reads .env (if any), then dir/base.yaml (if any), then SHOP_* variables.
// Nested keys use a double underscore: SHOP_DB__URL, SHOP_AUTH__JWT_SECRET.
func Load(dir string) (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("notice: .env not loaded: %v", err)
	}

	k := koanf.New(".")
	for key, v := range defaults() {
		if err := k.Set(key, v); err != nil {
			return Config{}, fmt.Errorf("defaults: %w", err)
		}
	}

	if dir != "" {
		path := fmt.Sprintf("%s/base.yaml", dir)
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("load base: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("db.driver must be postgres or sqlite, got %q", c.DB.Driver)
	}
	if c.DB.URL == "" {
		return fmt.Errorf("db.url required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("auth.refresh_secret required")
	}
	if c.Auth.JWTSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("auth.jwt_secret and auth.refresh_secret must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("auth ttls must be positive")
	}
	if _, err := c.PriceTolerance(); err != nil {
		return err
	}
	return nil
}

// PriceTolerance is the largest accepted difference between a submitted
// unit price and the catalog price.
func (c Config) PriceTolerance() (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Orders.PriceTolerance)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("orders.price_tolerance: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("orders.price_tolerance must be >= 0")
	}
	return d, nil
}

func (c Config) KafkaBrokers() []string {
	return CSV(c.Kafka.Brokers)
}

func (c Config) CORSOrigins() []string {
	return CSV(c.HTTP.CORSOrigins)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
