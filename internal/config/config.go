package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	IncidentsCSV       string
	CountyShapefile    string
	CountyNameField    string
	StationMetadataCSV string
	OutputDir          string

	// CDEC rainfall fetch configuration.
	RawRainfallDir         string
	CDECBaseURL            string
	RainfallFetchTimeout   time.Duration
	RainfallFetchRPS       float64
	RainfallRefresh        bool
	RainfallOffline        bool
	RainfallStartWaterYear int // 0 when unset
	RainfallEndWaterYear   int // 0 when unset

	JoinCountyFallback bool

	LogLevel        string
	LogFormat       string
	MetricsTextfile string
	// StatusAddr serves /healthz, /readyz, /status, and /metrics during the
	// run; empty disables the server.
	StatusAddr      string
	ShutdownTimeout time.Duration

	// Optional sinks; empty disables them.
	SQLitePath   string
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(envOrDefault("RAINFALL_FETCH_TIMEOUT", "60s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid RAINFALL_FETCH_TIMEOUT")
	}

	shutdown, err := time.ParseDuration(envOrDefault("SHUTDOWN_TIMEOUT", "5s"))
	if err != nil || shutdown <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	rps, err := strconv.ParseFloat(envOrDefault("RAINFALL_FETCH_RPS", "1"), 64)
	if err != nil || rps < 0 {
		return nil, errors.New("invalid RAINFALL_FETCH_RPS")
	}

	refresh, err := parseBool("RAINFALL_REFRESH", false)
	if err != nil {
		return nil, err
	}
	offline, err := parseBool("RAINFALL_OFFLINE", false)
	if err != nil {
		return nil, err
	}
	fallback, err := parseBool("JOIN_COUNTY_FALLBACK", true)
	if err != nil {
		return nil, err
	}

	startWY, err := parseWaterYear("RAINFALL_START_WATER_YEAR")
	if err != nil {
		return nil, err
	}
	endWY, err := parseWaterYear("RAINFALL_END_WATER_YEAR")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		IncidentsCSV:       envOrDefault("INCIDENTS_CSV", "data/CALFireMapDataAll.csv"),
		CountyShapefile:    envOrDefault("COUNTY_SHAPEFILE", "data/California_County_Boundaries/cnty19_1.shp"),
		CountyNameField:    envOrDefault("COUNTY_NAME_FIELD", "COUNTY_NAM"),
		StationMetadataCSV: envOrDefault("STATION_METADATA_CSV", "data/station_data.csv"),
		OutputDir:          envOrDefault("OUTPUT_DIR", "data"),

		RawRainfallDir:         envOrDefault("RAW_RAINFALL_DIR", "data/raw_rainfall"),
		CDECBaseURL:            strings.TrimRight(envOrDefault("CDEC_BASE_URL", "https://cdec.water.ca.gov"), "/"),
		RainfallFetchTimeout:   timeout,
		RainfallFetchRPS:       rps,
		RainfallRefresh:        refresh,
		RainfallOffline:        offline,
		RainfallStartWaterYear: startWY,
		RainfallEndWaterYear:   endWY,

		JoinCountyFallback: fallback,

		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),
		StatusAddr:      os.Getenv("STATUS_ADDR"),
		ShutdownTimeout: shutdown,

		SQLitePath:   os.Getenv("SQLITE_PATH"),
		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "calfire-monthly-summaries"),
	}

	if cfg.RainfallRefresh && cfg.RainfallOffline {
		return nil, errors.New("RAINFALL_REFRESH and RAINFALL_OFFLINE are mutually exclusive")
	}
	if cfg.RainfallStartWaterYear != 0 && cfg.RainfallEndWaterYear != 0 &&
		cfg.RainfallStartWaterYear > cfg.RainfallEndWaterYear {
		return nil, errors.New("RAINFALL_START_WATER_YEAR is after RAINFALL_END_WATER_YEAR")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	if cfg.CountyNameField == "" {
		return nil, errors.New("COUNTY_NAME_FIELD is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// RainfallOverride reports whether either water-year bound was set explicitly.
func (c *Config) RainfallOverride() bool {
	return c.RainfallStartWaterYear != 0 || c.RainfallEndWaterYear != 0
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func parseWaterYear(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	wy, err := strconv.Atoi(v)
	if err != nil || wy < 1900 || wy > 9999 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return wy, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
