package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the API process.
// Values are primarily loaded from environment variables with sane
// defaults so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr       string
	RedisPassword   string
	RedisListingKey string
	RedisGeoPrefix  string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	NominatimURL    string
	OSRMURL         string
	GeocodeCountry  string
	GeocodeCacheTTL time.Duration
	GeocodeThrottle time.Duration

	SearchRadiusKm float64

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RedisListingKey: "listings_snapshot",
		RedisGeoPrefix:  "geocode",
		KafkaTopic:      "listing-events",
		NominatimURL:    "https://nominatim.openstreetmap.org",
		OSRMURL:         "https://router.project-osrm.org",
		GeocodeCountry:  "ca",
		GeocodeCacheTTL: 15 * time.Minute,
		GeocodeThrottle: 100 * time.Millisecond,
		SearchRadiusKm:  25,
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisListingKey, "REDIS_LISTING_KEY")
	setStringFromEnv(&cfg.RedisGeoPrefix, "REDIS_GEOCODE_PREFIX")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setStringFromEnv(&cfg.NominatimURL, "NOMINATIM_URL")
	setStringFromEnv(&cfg.OSRMURL, "OSRM_URL")
	setStringFromEnv(&cfg.GeocodeCountry, "GEOCODE_COUNTRY")
	setDurationFromEnv(&cfg.GeocodeCacheTTL, "GEOCODE_CACHE_TTL", &errs)
	setDurationFromEnv(&cfg.GeocodeThrottle, "GEOCODE_THROTTLE", &errs)

	setFloatFromEnv(&cfg.SearchRadiusKm, "SEARCH_RADIUS_KM", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.SearchRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_RADIUS_KM must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
