package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values
type Config struct {
	Port           string
	AllowedOrigins []string
	SecureCookies  bool
	LogLevel       string
	LogPretty      bool
	HTTPTimeout    time.Duration
	Timezone       string

	BackendBaseURL    string
	BackendAPIToken   string
	ContactCollection string
	OrdersCollection  string

	RelayURL        string
	RelayWebhookURL string
	RelayTemplate   string
	RelayCC         []string
	RelaySubject    string

	AnalyticsWebhookURL string
	AnalyticsAPIKey     string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioAlertTo    string

	KafkaBrokers []string
	KafkaTopic   string

	SourceTag string

	StoreDriver   string
	RedisURL      string
	DatabaseURL   string
	IdentifierTTL time.Duration

	NotificationDuration time.Duration
	CopyAckDuration      time.Duration
	RedirectDelay        time.Duration
	FallbackURL          string
}

type configFile struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		Timezone       string   `yaml:"timezone"`
		HTTPTimeout    string   `yaml:"http_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Backend struct {
		BaseURL           string `yaml:"base_url"`
		ContactCollection string `yaml:"contact_collection"`
		OrdersCollection  string `yaml:"orders_collection"`
	} `yaml:"backend"`
	Relay struct {
		URL        string   `yaml:"url"`
		WebhookURL string   `yaml:"webhook_url"`
		Template   string   `yaml:"template"`
		CC         []string `yaml:"cc"`
		Subject    string   `yaml:"subject"`
	} `yaml:"relay"`
	Analytics struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"analytics"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Submission struct {
		Source string `yaml:"source"`
	} `yaml:"submission"`
	Store struct {
		Driver      string `yaml:"driver"`
		RedisURL    string `yaml:"redis_url"`
		DatabaseURL string `yaml:"database_url"`
		TTL         string `yaml:"ttl"`
	} `yaml:"store"`
	Notify struct {
		Duration string `yaml:"duration"`
		CopyAck  string `yaml:"copy_ack"`
	} `yaml:"notify"`
	Resolver struct {
		RedirectDelay string `yaml:"redirect_delay"`
		FallbackURL   string `yaml:"fallback_url"`
	} `yaml:"resolver"`
}

// LoadConfig builds the configuration from defaults, an optional YAML file and the environment.
// Secrets are only read from the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Port:                 "8080",
		AllowedOrigins:       []string{"*"},
		LogLevel:             "info",
		HTTPTimeout:          20 * time.Second,
		Timezone:             "Local",
		ContactCollection:    "contact-submissions",
		OrdersCollection:     "orders",
		RelayTemplate:        "table",
		RelaySubject:         "New contact form submission",
		KafkaTopic:           "contact.submitted",
		SourceTag:            "website-contact-form",
		StoreDriver:          "memory",
		IdentifierTTL:        90 * 24 * time.Hour,
		NotificationDuration: 5 * time.Second,
		CopyAckDuration:      2 * time.Second,
		RedirectDelay:        3 * time.Second,
		FallbackURL:          "/pricing",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err == nil {
			if err := cfg.applyFile(raw); err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv()

	if cfg.BackendBaseURL == "" {
		return nil, fmt.Errorf("missing BACKEND_BASE_URL")
	}
	switch cfg.StoreDriver {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("missing REDIS_URL for store driver redis")
		}
	case "sqlite", "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("missing DATABASE_URL for store driver %s", cfg.StoreDriver)
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func (cfg *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	setString(&cfg.Port, f.Server.Port)
	setString(&cfg.Timezone, f.Server.Timezone)
	if len(f.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = trimNonEmpty(f.Server.AllowedOrigins)
	}
	setString(&cfg.LogLevel, f.Log.Level)
	cfg.LogPretty = cfg.LogPretty || f.Log.Pretty

	setString(&cfg.BackendBaseURL, f.Backend.BaseURL)
	setString(&cfg.ContactCollection, f.Backend.ContactCollection)
	setString(&cfg.OrdersCollection, f.Backend.OrdersCollection)

	setString(&cfg.RelayURL, f.Relay.URL)
	setString(&cfg.RelayWebhookURL, f.Relay.WebhookURL)
	setString(&cfg.RelayTemplate, f.Relay.Template)
	setString(&cfg.RelaySubject, f.Relay.Subject)
	if len(f.Relay.CC) > 0 {
		cfg.RelayCC = trimNonEmpty(f.Relay.CC)
	}

	setString(&cfg.AnalyticsWebhookURL, f.Analytics.WebhookURL)
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Kafka.Brokers)
	}
	setString(&cfg.KafkaTopic, f.Kafka.Topic)
	setString(&cfg.SourceTag, f.Submission.Source)

	setString(&cfg.StoreDriver, f.Store.Driver)
	setString(&cfg.RedisURL, f.Store.RedisURL)
	setString(&cfg.DatabaseURL, f.Store.DatabaseURL)
	setString(&cfg.FallbackURL, f.Resolver.FallbackURL)

	durations := []struct {
		raw  string
		dest *time.Duration
		name string
	}{
		{f.Server.HTTPTimeout, &cfg.HTTPTimeout, "server.http_timeout"},
		{f.Store.TTL, &cfg.IdentifierTTL, "store.ttl"},
		{f.Notify.Duration, &cfg.NotificationDuration, "notify.duration"},
		{f.Notify.CopyAck, &cfg.CopyAckDuration, "notify.copy_ack"},
		{f.Resolver.RedirectDelay, &cfg.RedirectDelay, "resolver.redirect_delay"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("error parsing %s: %w", d.name, err)
		}
		*d.dest = v
	}
	return nil
}

func (cfg *Config) applyEnv() {
	cfg.Port = envOrDefault("PORT", cfg.Port)
	cfg.AllowedOrigins = envCSV("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.SecureCookies = envBool("COOKIE_SECURE", cfg.SecureCookies)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = envBool("LOG_PRETTY", cfg.LogPretty)
	cfg.HTTPTimeout = envDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.Timezone = envOrDefault("TIMEZONE", cfg.Timezone)

	cfg.BackendBaseURL = strings.TrimRight(envOrDefault("BACKEND_BASE_URL", cfg.BackendBaseURL), "/")
	cfg.BackendAPIToken = os.Getenv("BACKEND_API_TOKEN")
	cfg.ContactCollection = envOrDefault("BACKEND_CONTACT_COLLECTION", cfg.ContactCollection)
	cfg.OrdersCollection = envOrDefault("BACKEND_ORDERS_COLLECTION", cfg.OrdersCollection)

	cfg.RelayURL = envOrDefault("RELAY_URL", cfg.RelayURL)
	cfg.RelayWebhookURL = envOrDefault("RELAY_WEBHOOK_URL", cfg.RelayWebhookURL)
	cfg.RelayTemplate = envOrDefault("RELAY_TEMPLATE", cfg.RelayTemplate)
	cfg.RelayCC = envCSV("RELAY_CC", cfg.RelayCC)
	cfg.RelaySubject = envOrDefault("RELAY_SUBJECT", cfg.RelaySubject)

	cfg.AnalyticsWebhookURL = envOrDefault("ANALYTICS_WEBHOOK_URL", cfg.AnalyticsWebhookURL)
	cfg.AnalyticsAPIKey = os.Getenv("ANALYTICS_API_KEY")

	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioFrom = os.Getenv("TWILIO_FROM")
	cfg.TwilioAlertTo = os.Getenv("TWILIO_ALERT_TO")

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)

	cfg.SourceTag = envOrDefault("SUBMISSION_SOURCE", cfg.SourceTag)

	cfg.StoreDriver = strings.ToLower(envOrDefault("STORE_DRIVER", cfg.StoreDriver))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.IdentifierTTL = envDuration("IDENTIFIER_TTL", cfg.IdentifierTTL)

	cfg.NotificationDuration = envDuration("NOTIFICATION_DURATION", cfg.NotificationDuration)
	cfg.CopyAckDuration = envDuration("COPY_ACK_DURATION", cfg.CopyAckDuration)
	cfg.RedirectDelay = envDuration("REDIRECT_DELAY", cfg.RedirectDelay)
	cfg.FallbackURL = envOrDefault("FALLBACK_URL", cfg.FallbackURL)
}

// Location resolves the configured timezone, falling back to the server's local zone
func (cfg *Config) Location() *time.Location {
	if cfg.Timezone == "" || cfg.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setString(dest *string, value string) {
	if value != "" {
		*dest = value
	}
}

func envOrDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go durations ("90s") or a bare number of seconds
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	if v, err := time.ParseDuration(raw); err == nil {
		return v
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
