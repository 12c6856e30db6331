package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the sighting service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port the public API listens on.
// - MonitoringPort: The port for the health and metrics server.
// - ProviderType: The type of geocoding provider to use (google, nominatim).
// - APIKey: The map-service API key (required for Google).
// - RateLimit: Requests per second allowed against the provider.
// - ProviderURL: Base URL of a self-hosted Nominatim instance.
// - Workers: The number of concurrent place-labelling workers.
// - Interval: The duration between place-labelling polls.
// - AllowedOrigins: Origins allowed by CORS on the public API.
// - Store: Which backing store to use.
// - Database: Configuration settings for the PostgreSQL database.
// - Map: Initial viewport and search bias handed to map clients.
type Config struct {
	Env            string         `yaml:"env"`
	Port           int            `yaml:"http.port"`
	MonitoringPort int            `yaml:"monitoring.port"`
	ProviderType   string         `yaml:"provider.type"`
	APIKey         string         `yaml:"provider.key"`
	RateLimit      int            `yaml:"provider.rate_limit"`
	ProviderURL    string         `yaml:"provider.url"`
	Workers        int            `yaml:"labeler.workers"`
	Interval       time.Duration  `yaml:"labeler.interval"`
	AllowedOrigins []string       `yaml:"http.allowed_origins"`
	Store          StoreConfig    `yaml:"store"`
	Database       PostgresConfig `yaml:"postgres"`
	Map            MapConfig      `yaml:"map"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver     string `yaml:"driver"`      // Driver is either "postgres" or "sqlite".
	SQLitePath string `yaml:"sqlite_path"` // SQLitePath is the database file used by the sqlite driver.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Name     string `yaml:"db_name"`  // Name is the name of the database.
}

// MapConfig describes the initial map viewport and the autocomplete bias.
type MapConfig struct {
	CenterLat    float64 `yaml:"center_lat"`
	CenterLng    float64 `yaml:"center_lng"`
	Zoom         int     `yaml:"zoom"`
	SearchZoom   int     `yaml:"search_zoom"`
	SearchRadius int     `yaml:"search_radius"` // meters
}

// ClientConfig holds the settings of the spotter console.
type ClientConfig struct {
	Env     string
	APIURL  string
	Timeout time.Duration
}

// envBindings maps configuration keys to the environment variables that override them.
var envBindings = map[string]string{
	"env":                  "THUNDERS_ENV",
	"http.port":            "THUNDERS_PORT",
	"http.allowed_origins": "THUNDERS_ALLOWED_ORIGINS",
	"monitoring.port":      "THUNDERS_HEALTH_PORT",
	"provider.type":        "THUNDERS_PROVIDER_TYPE",
	"provider.key":         "THUNDERS_PROVIDER_KEY",
	"provider.rate_limit":  "THUNDERS_PROVIDER_RATE_LIMIT",
	"provider.url":         "THUNDERS_PROVIDER_URL",
	"labeler.workers":      "THUNDERS_WORKERS",
	"labeler.interval":     "THUNDERS_INTERVAL",
	"store.driver":         "THUNDERS_STORE_DRIVER",
	"store.sqlite_path":    "THUNDERS_SQLITE_PATH",
	"postgres.host":        "DB_HOST",
	"postgres.port":        "DB_PORT",
	"postgres.user":        "DB_USERNAME",
	"postgres.password":    "DB_PASSWORD",
	"postgres.db_name":     "DB_NAME",
	"map.center_lat":       "THUNDERS_MAP_CENTER_LAT",
	"map.center_lng":       "THUNDERS_MAP_CENTER_LNG",
	"map.zoom":             "THUNDERS_MAP_ZOOM",
	"map.search_zoom":      "THUNDERS_MAP_SEARCH_ZOOM",
	"map.search_radius":    "THUNDERS_MAP_SEARCH_RADIUS",
	"api.url":              "THUNDERS_API_URL",
	"api.timeout":          "THUNDERS_CLIENT_TIMEOUT",
}

// MustLoad loads the server configuration from the environment and an optional YAML file
// named by THUNDERS_CONFIG. It panics when a value cannot be parsed.
func MustLoad() *Config {
	v := newViper()

	interval, err := time.ParseDuration(v.GetString("labeler.interval"))
	if err != nil {
		panic("failed to parse interval from configuration")
	}

	port, err := strconv.Atoi(v.GetString("http.port"))
	if err != nil {
		panic("failed to parse port for api server from configuration")
	}

	healthPort, err := strconv.Atoi(v.GetString("monitoring.port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	workers, err := strconv.Atoi(v.GetString("labeler.workers"))
	if err != nil || workers < 1 {
		panic("failed to parse workers from configuration, must be a positive integer")
	}

	rateLimit, err := strconv.Atoi(v.GetString("provider.rate_limit"))
	if err != nil {
		panic("failed to parse provider rate limit from configuration")
	}

	return &Config{
		Env:            v.GetString("env"),
		Port:           port,
		MonitoringPort: healthPort,
		ProviderType:   v.GetString("provider.type"),
		APIKey:         v.GetString("provider.key"),
		RateLimit:      rateLimit,
		ProviderURL:    strings.TrimRight(v.GetString("provider.url"), "/"),
		Workers:        workers,
		Interval:       interval,
		AllowedOrigins: splitCSV(v.GetString("http.allowed_origins")),
		Store: StoreConfig{
			Driver:     v.GetString("store.driver"),
			SQLitePath: v.GetString("store.sqlite_path"),
		},
		Database: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db_name"),
		},
		Map: MapConfig{
			CenterLat:    mustFloat(v, "map.center_lat"),
			CenterLng:    mustFloat(v, "map.center_lng"),
			Zoom:         mustInt(v, "map.zoom"),
			SearchZoom:   mustInt(v, "map.search_zoom"),
			SearchRadius: mustInt(v, "map.search_radius"),
		},
	}
}

// MustLoadClient loads the spotter console configuration.
func MustLoadClient() *ClientConfig {
	v := newViper()

	timeout, err := time.ParseDuration(v.GetString("api.timeout"))
	if err != nil {
		panic("failed to parse client timeout from configuration")
	}

	return &ClientConfig{
		Env:     v.GetString("env"),
		APIURL:  strings.TrimRight(v.GetString("api.url"), "/"),
		Timeout: timeout,
	}
}

func newViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("env", "production")
	v.SetDefault("http.port", "3000")
	v.SetDefault("http.allowed_origins", "")
	v.SetDefault("monitoring.port", "8080")
	v.SetDefault("provider.type", "google") // Google matches the browser map widget
	v.SetDefault("provider.key", "")
	v.SetDefault("provider.rate_limit", "50")
	v.SetDefault("provider.url", "")
	v.SetDefault("labeler.workers", "4")
	v.SetDefault("labeler.interval", "1m")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "data/thunders.db")
	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "")
	v.SetDefault("map.center_lat", "46.201339")
	v.SetDefault("map.center_lng", "6.147120")
	v.SetDefault("map.zoom", "8")
	v.SetDefault("map.search_zoom", "14")
	v.SetDefault("map.search_radius", "200000")
	v.SetDefault("api.url", "http://localhost:3000")
	v.SetDefault("api.timeout", "10s")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if path, ok := os.LookupEnv("THUNDERS_CONFIG"); ok && path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	return v
}

func mustFloat(v *viper.Viper, key string) float64 {
	value, err := strconv.ParseFloat(v.GetString(key), 64)
	if err != nil {
		panic("failed to parse " + key + " from configuration")
	}

	return value
}

func mustInt(v *viper.Viper, key string) int {
	value, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		panic("failed to parse " + key + " from configuration")
	}

	return value
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
