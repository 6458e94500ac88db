package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL"`
	DefaultStockPrice string `env:"DEFAULT_STOCK_PRICE" envDefault:"10"`
	Postgres          Postgres
	Redis             Redis
	Bus               Bus
	Feed              Feed
	Market            HTTPServer `envPrefix:"MARKET_"`
	Order             HTTPServer `envPrefix:"ORDER_"`
	Portfolio         HTTPServer `envPrefix:"PORTFOLIO_"`
	PortfolioAPI      PortfolioAPI
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type Bus struct {
	PriceStream    string        `env:"BUS_PRICE_STREAM" envDefault:"stock_price_updates"`
	OrderStream    string        `env:"BUS_ORDER_STREAM" envDefault:"order_events"`
	OrderGroup     string        `env:"BUS_ORDER_GROUP" envDefault:"order-service-group"`
	PortfolioGroup string        `env:"BUS_PORTFOLIO_GROUP" envDefault:"portfolio-service-group"`
	Consumer       string        `env:"BUS_CONSUMER" envDefault:"consumer-1"`
	StreamMaxLen   int64         `env:"BUS_STREAM_MAX_LEN" envDefault:"10000"`
	PublishTimeout time.Duration `env:"BUS_PUBLISH_TIMEOUT" envDefault:"5s"`
	ReadBlock      time.Duration `env:"BUS_READ_BLOCK" envDefault:"5s"`
	ReadBatch      int64         `env:"BUS_READ_BATCH" envDefault:"10"`
}

type Feed struct {
	Interval   time.Duration `env:"FEED_INTERVAL" envDefault:"2s"`
	Policy     string        `env:"FEED_POLICY" envDefault:"absolute"`
	MaxDelta   string        `env:"FEED_MAX_DELTA" envDefault:"2"`
	MaxPercent string        `env:"FEED_MAX_PERCENT" envDefault:"1"`
	PriceFloor string        `env:"FEED_PRICE_FLOOR" envDefault:"0"`
}

type HTTPServer struct {
	Port            int           `env:"HTTP_PORT"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type PortfolioAPI struct {
	Url     string        `env:"PORTFOLIO_API_URL"`
	Debug   bool          `env:"PORTFOLIO_API_DEBUG" envDefault:"false"`
	Timeout time.Duration `env:"PORTFOLIO_API_TIMEOUT" envDefault:"5s"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
