package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	Port        string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr string

	Gateway GatewayConfig
	Chat    ChatConfig
	SMS     SMSConfig
	Notify  NotifyConfig
}

// GatewayConfig configures the prepaid payment gateway client.
type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
}

// ChatConfig configures the chat bridge session.
type ChatConfig struct {
	BridgeURL          string
	SessionDir         string
	CountryCode        string
	ConnectMaxAttempts int
	ConnectDelay       time.Duration
	ReadyTimeout       time.Duration
	SendTimeout        time.Duration
	ClearSessionOnFail bool
}

// SMSConfig configures the SMS gateway fallback channel.
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
}

// NotifyConfig names the order-event recipients.
type NotifyConfig struct {
	AdminPhone string
	StoreName  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "orderflow"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		Port:        getenv("PORT", "8080"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "orderflow"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		RedisAddr: strings.TrimSpace(getenv("REDIS_ADDR", "")),

		Gateway: GatewayConfig{
			BaseURL:   getenv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
			KeyID:     strings.TrimSpace(getenv("GATEWAY_KEY_ID", "")),
			KeySecret: strings.TrimSpace(getenv("GATEWAY_KEY_SECRET", "")),
			Currency:  getenv("GATEWAY_CURRENCY", "INR"),
		},
		Chat: ChatConfig{
			BridgeURL:          getenv("CHAT_BRIDGE_URL", "http://localhost:3300"),
			SessionDir:         getenv("CHAT_SESSION_DIR", ".wa-session"),
			CountryCode:        getenv("CHAT_COUNTRY_CODE", "91"),
			ConnectMaxAttempts: getenvInt("CHAT_CONNECT_MAX_ATTEMPTS", 3),
			ConnectDelay:       getenvDuration("CHAT_CONNECT_DELAY", 5*time.Second),
			ReadyTimeout:       getenvDuration("CHAT_READY_TIMEOUT", 30*time.Second),
			SendTimeout:        getenvDuration("CHAT_SEND_TIMEOUT", 20*time.Second),
			ClearSessionOnFail: getenvBool("CHAT_CLEAR_SESSION_ON_FAIL", true),
		},
		SMS: SMSConfig{
			BaseURL:    getenv("SMS_BASE_URL", "https://api.twilio.com"),
			AccountSID: strings.TrimSpace(getenv("SMS_ACCOUNT_SID", "")),
			AuthToken:  strings.TrimSpace(getenv("SMS_AUTH_TOKEN", "")),
			From:       strings.TrimSpace(getenv("SMS_FROM", "")),
		},
		Notify: NotifyConfig{
			AdminPhone: strings.TrimSpace(getenv("NOTIFY_ADMIN_PHONE", "")),
			StoreName:  getenv("NOTIFY_STORE_NAME", "Knitkart"),
		},
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
