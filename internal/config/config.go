package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Backup       BackupConfig       `yaml:"backup"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Logging      LoggingConfig      `yaml:"logging"`
	API          APIConfig          `yaml:"api"`
	Reservations ReservationsConfig `yaml:"reservations"`
	CatalogPath  string             `yaml:"catalog_path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// ReservationsConfig holds the lending policy.
type ReservationsConfig struct {
	LoanDays          int  `yaml:"loan_days"`
	ExtensionDays     int  `yaml:"extension_days"`
	MaxExtensions     int  `yaml:"max_extensions"`
	AutoApprove       bool `yaml:"auto_approve"`
	ActivityFeedLimit int  `yaml:"activity_feed_limit"`
	RateLimitRequests int  `yaml:"rate_limit_requests"`
	RateLimitWindow   int  `yaml:"rate_limit_window"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional: used for local overrides of ${VAR} references.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Подстановка переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api keys are configured")
	}

	if c.Reservations.MaxExtensions < 0 {
		return errors.New("reservations.max_extensions must not be negative")
	}

	keys := make(map[string]bool, len(c.API.Auth.APIKeys))
	for _, k := range c.API.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("api key for client '%s' is empty", k.Name)
		}
		if keys[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		keys[k.Key] = true
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	// Lending policy defaults
	if c.Reservations.LoanDays == 0 {
		c.Reservations.LoanDays = models.DefaultLoanDays
	}
	if c.Reservations.ExtensionDays == 0 {
		c.Reservations.ExtensionDays = models.DefaultExtensionDays
	}
	if c.Reservations.MaxExtensions == 0 {
		c.Reservations.MaxExtensions = models.DefaultMaxExtensions
	}
	if c.Reservations.ActivityFeedLimit == 0 {
		c.Reservations.ActivityFeedLimit = models.DefaultActivityFeedLimit
	}
	if c.Reservations.RateLimitRequests == 0 {
		c.Reservations.RateLimitRequests = models.RateLimitRequests
	}
	if c.Reservations.RateLimitWindow == 0 {
		c.Reservations.RateLimitWindow = models.RateLimitWindow
	}

	if c.CatalogPath == "" {
		c.CatalogPath = "configs/catalog.yaml"
	}
}

// LoadCatalog reads the seed book catalog from a YAML file.
func LoadCatalog(path string) ([]models.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog struct {
		Books []models.Book `yaml:"books"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}

	if err := ValidateCatalog(catalog.Books); err != nil {
		return nil, err
	}

	return catalog.Books, nil
}

// ValidateCatalog checks seed books for duplicate IDs and bad quantities.
func ValidateCatalog(books []models.Book) error {
	ids := make(map[int64]bool)
	for _, b := range books {
		if b.ID == 0 {
			return fmt.Errorf("book '%s' has invalid ID 0", b.Title)
		}
		if ids[b.ID] {
			return fmt.Errorf("duplicate book ID found: %d", b.ID)
		}
		if b.TotalQuantity < 0 {
			return fmt.Errorf("book '%s' has negative total_quantity", b.Title)
		}
		ids[b.ID] = true
	}
	return nil
}
