package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	LogLevel  string
	LogFormat string

	Currency           string
	PayoutFeePercent   decimal.Decimal
	PayoutFeeFixed     decimal.Decimal
	DisbursementWindow time.Duration

	GatewayTimeout         time.Duration
	BreakerMaxFailures     uint32
	BreakerOpenTimeout     time.Duration
	BreakerHalfOpenMaxReqs uint32
	WebhookSecret          string

	MetricsNamespace string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := time.ParseDuration(v); err == nil {
			return n
		}
	}
	return d
}

func getdecimal(k string, d decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(k); v != "" {
		if n, err := decimal.NewFromString(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads the environment, after merging a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "escrow"),
		MySQLUser: getenv("MYSQL_USER", "escrow"),
		MySQLPass: getenv("MYSQL_PASS", "escrow"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		Currency:           getenv("LEDGER_CURRENCY", "IDR"),
		PayoutFeePercent:   getdecimal("PAYOUT_FEE_PERCENT", decimal.Zero),
		PayoutFeeFixed:     getdecimal("PAYOUT_FEE_FIXED", decimal.Zero),
		DisbursementWindow: getduration("DISBURSEMENT_WINDOW", 24*time.Hour),

		GatewayTimeout:         getduration("GATEWAY_TIMEOUT", 10*time.Second),
		BreakerMaxFailures:     uint32(getint("GATEWAY_BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout:     getduration("GATEWAY_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		BreakerHalfOpenMaxReqs: uint32(getint("GATEWAY_BREAKER_HALF_OPEN_REQUESTS", 1)),
		WebhookSecret:          getenv("GATEWAY_WEBHOOK_SECRET", ""),

		MetricsNamespace: getenv("METRICS_NAMESPACE", "escrow"),
	}
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid LEDGER_CURRENCY %q: want a 3-letter code", c.Currency)
	}
	if c.PayoutFeePercent.IsNegative() || c.PayoutFeePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return errors.New("PAYOUT_FEE_PERCENT must be in [0, 100)")
	}
	if c.PayoutFeeFixed.IsNegative() {
		return errors.New("PAYOUT_FEE_FIXED must not be negative")
	}
	if c.DisbursementWindow <= 0 || c.GatewayTimeout <= 0 {
		return errors.New("DISBURSEMENT_WINDOW and GATEWAY_TIMEOUT must be positive")
	}
	if c.BreakerMaxFailures == 0 {
		return errors.New("GATEWAY_BREAKER_MAX_FAILURES must be at least 1")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }
