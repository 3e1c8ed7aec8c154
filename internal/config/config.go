package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	StoreDriver       string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	SQLitePath        string        `mapstructure:"SQLITE_PATH"`
	AdminKey          string        `mapstructure:"ADMIN_KEY"`
	AIURL             string        `mapstructure:"AI_URL"`
	ClassifyWorkers   int           `mapstructure:"CLASSIFY_WORKERS"`
	ClassifyTimeout   time.Duration `mapstructure:"CLASSIFY_TIMEOUT"`
	ClassifyRetries   int           `mapstructure:"CLASSIFY_MAX_RETRIES"`
	RegionAliasesPath string        `mapstructure:"REGION_ALIASES_PATH"`
	DefaultOffice     string        `mapstructure:"DEFAULT_OFFICE"`
	CountryDefault    string        `mapstructure:"COUNTRY_DEFAULT"`
	NominatimURL      string        `mapstructure:"NOMINATIM_URL"`
	GeocoderUserAgent string        `mapstructure:"GEOCODER_USER_AGENT"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "fire.db")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("AI_URL", "")
	v.SetDefault("CLASSIFY_WORKERS", 2)
	v.SetDefault("CLASSIFY_TIMEOUT", "15s")
	v.SetDefault("CLASSIFY_MAX_RETRIES", 2)
	v.SetDefault("REGION_ALIASES_PATH", "")
	v.SetDefault("DEFAULT_OFFICE", "Астана")
	v.SetDefault("COUNTRY_DEFAULT", "Казахстан")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODER_USER_AGENT", "fire-router")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch strings.ToLower(c.StoreDriver) {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for STORE_DRIVER=%s", DriverSQLite)
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ClassifyWorkers < 1 {
		return fmt.Errorf("config: CLASSIFY_WORKERS must be at least 1")
	}
	if c.ClassifyRetries < 0 {
		return fmt.Errorf("config: CLASSIFY_MAX_RETRIES must not be negative")
	}
	return nil
}
