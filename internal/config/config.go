package config

import (
	"log"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	API      APIConfig
	Checkout CheckoutConfig
	Notify   NotifyConfig
	Bot      BotConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
	// Location is the driver's loc: DATETIME values are read and written
	// in the property zone, the same zone the date and time strings use.
	Location *time.Location
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type APIConfig struct {
	Key string
}

// CheckoutConfig tunes the scheduled checkout engine. The enabled flag and
// target time live in system_settings, not here.
type CheckoutConfig struct {
	Timezone       string
	Location       *time.Location
	Grace          time.Duration
	TriggerSpec    string
	BookingTimeout time.Duration
	ClaimTTL       time.Duration
}

type NotifyConfig struct {
	HotelName     string
	SMSGatewayURL string
	SMSAPIKey     string
	SMSSender     string
	ResendAPIKey  string
	EmailFrom     string
}

type BotConfig struct {
	Token      string
	ReportChat string
}

const (
	defaultTimezone       = "Asia/Kolkata"
	defaultGrace          = 5 * time.Minute
	defaultBookingTimeout = 15 * time.Second
	defaultClaimTTL       = 15 * time.Minute
)

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CHECKOUT_TIMEZONE", defaultTimezone)
	viper.SetDefault("CHECKOUT_GRACE", defaultGrace.String())
	viper.SetDefault("CHECKOUT_TRIGGER_SPEC", "0 */5 * * * *")
	viper.SetDefault("CHECKOUT_BOOKING_TIMEOUT", defaultBookingTimeout.String())
	viper.SetDefault("CHECKOUT_CLAIM_TTL", defaultClaimTTL.String())
	viper.SetDefault("HOTEL_NAME", "Hotel")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
		Checkout: CheckoutConfig{
			Timezone:       viper.GetString("CHECKOUT_TIMEZONE"),
			Grace:          durationOr("CHECKOUT_GRACE", defaultGrace),
			TriggerSpec:    viper.GetString("CHECKOUT_TRIGGER_SPEC"),
			BookingTimeout: durationOr("CHECKOUT_BOOKING_TIMEOUT", defaultBookingTimeout),
			ClaimTTL:       durationOr("CHECKOUT_CLAIM_TTL", defaultClaimTTL),
		},
		Notify: NotifyConfig{
			HotelName:     viper.GetString("HOTEL_NAME"),
			SMSGatewayURL: viper.GetString("SMS_GATEWAY_URL"),
			SMSAPIKey:     viper.GetString("SMS_API_KEY"),
			SMSSender:     viper.GetString("SMS_SENDER"),
			ResendAPIKey:  viper.GetString("RESEND_API_KEY"),
			EmailFrom:     viper.GetString("EMAIL_FROM"),
		},
		Bot: BotConfig{
			Token:      viper.GetString("BOT_TOKEN"),
			ReportChat: viper.GetString("BOT_REPORT_CHAT"),
		},
	}

	loc, err := loadLocation(cfg.Checkout.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Checkout.Timezone = loc.String()
	cfg.Checkout.Location = loc
	cfg.Database.Location = loc

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.API.Key == "" {
		log.Println("WARNING: API_KEY is not set, admin API will reject every request")
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just the database settings, for schema bootstrap.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("CHECKOUT_TIMEZONE", defaultTimezone)

	db := loadDatabase()
	loc, err := loadLocation(viper.GetString("CHECKOUT_TIMEZONE"))
	if err != nil {
		return nil, err
	}
	db.Location = loc
	return &db, nil
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	log.Printf("WARNING: invalid CHECKOUT_TIMEZONE %q, using %s", name, defaultTimezone)
	return time.LoadLocation(defaultTimezone)
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
	}
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid %s %q, using %s", key, viper.GetString(key), fallback)
		return fallback
	}
	return d
}

// DSN returns the MySQL DSN string for GORM. A nil Location means UTC.
func (d *DatabaseConfig) DSN() string {
	loc := time.UTC
	if d.Location != nil {
		loc = d.Location
	}
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=" + url.QueryEscape(loc.String())
}
