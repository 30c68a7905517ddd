package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                    string        `mapstructure:"PORT"`
	Env                     string        `mapstructure:"ENV"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	AllowedOrigins          string        `mapstructure:"ALLOWED_ORIGINS"`
	FirebaseCredentialsPath string        `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseStorageBucket   string        `mapstructure:"FIREBASE_STORAGE_BUCKET"`
	PostgresUrl             string        `mapstructure:"POSTGRES_CONN_STR"`
	MongoURI                string        `mapstructure:"MONGO_URI"`
	MongoDatabase           string        `mapstructure:"MONGO_DATABASE"`
	RedisURL                string        `mapstructure:"REDIS_URL"`
	MetricsPort             string        `mapstructure:"METRICS_PORT"`
	JWTSecret               string        `mapstructure:"JWT_SECRET"`
	SessionTTL              time.Duration `mapstructure:"SESSION_TTL"`
	VerificationURL         string        `mapstructure:"VERIFICATION_URL"`
	VerificationSecret      string        `mapstructure:"VERIFICATION_SECRET"`
	VerificationWorkers     int           `mapstructure:"VERIFICATION_WORKERS"`
	ChatbotURL              string        `mapstructure:"CHATBOT_URL"`
	SweepInterval           time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepBatchSize          int           `mapstructure:"SWEEP_BATCH_SIZE"`
	DefaultRadiusKm         int           `mapstructure:"DEFAULT_RADIUS_KM"`
}

var defaults = map[string]interface{}{
	"PORT":                      "8080",
	"ENV":                       "development",
	"LOG_LEVEL":                 "info",
	"ALLOWED_ORIGINS":           "*",
	"FIREBASE_CREDENTIALS_PATH": "./firebase_credentials.json",
	"FIREBASE_STORAGE_BUCKET":   "",
	"POSTGRES_CONN_STR":         "",
	"MONGO_URI":                 "",
	"MONGO_DATABASE":            "nearby",
	"REDIS_URL":                 "redis://localhost:6379/0",
	"METRICS_PORT":              "9090",
	"JWT_SECRET":                "",
	"SESSION_TTL":               "72h",
	"VERIFICATION_URL":          "",
	"VERIFICATION_SECRET":       "",
	"VERIFICATION_WORKERS":      2,
	"CHATBOT_URL":               "",
	"SWEEP_INTERVAL":            "1m",
	"SWEEP_BATCH_SIZE":          100,
	"DEFAULT_RADIUS_KM":         5,
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET must be set when ENV=%s", c.Env)
		}
		c.JWTSecret = "dev-only-session-secret"
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be positive, got %d", c.SweepBatchSize)
	}
	if c.DefaultRadiusKm <= 0 {
		return fmt.Errorf("DEFAULT_RADIUS_KM must be positive, got %d", c.DefaultRadiusKm)
	}
	if c.VerificationWorkers <= 0 {
		c.VerificationWorkers = 1
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "test"
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
