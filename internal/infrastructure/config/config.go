package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is built once at
// startup and never mutated afterwards; components receive copies of
// the sections they need.
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Remote    RemoteConfig
	Crypto    CryptoConfig
	Columns   ColumnsConfig
	AccessDB  AccessDBConfig
	Uploads   UploadsConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodySize    int64
	TrustedProxies []string
}

// RemoteConfig holds the remote store connection settings. Webhook is
// the encrypted inbound-webhook URL written by the init endpoint; the
// plaintext never lands in configuration.
type RemoteConfig struct {
	Webhook string
	Timeout time.Duration

	EntityTypeID     int64
	DealCategoryID   int64
	ProductSectionID int64
	CatalogIBlockID  int64
	AssignedByID     int64

	LineItemChunkSize int
	LineItemPause     time.Duration

	Fields RemoteFieldsConfig
}

// RemoteFieldsConfig names the portal's custom fields. The identifiers
// are generated per portal ("UF_CRM_..." style), so every deployment
// sets its own.
type RemoteFieldsConfig struct {
	ProductAccessID   string
	ContactAccessID   string
	ContactProductIDs string
	SupplierFlag      string
	PriceRequest      string
	DeliveryDate      string
}

// CryptoConfig holds the credential cipher settings. EnvFile is where
// the init endpoint persists generated key material. Passphrase is an
// alternative to Key: when Key is empty the cipher key is derived from
// it with PBKDF2, so deployments can avoid raw hex keys in config.
type CryptoConfig struct {
	Key        string // hex, 32 bytes
	IV         string // hex, 16 bytes
	Passphrase string
	Salt       string
	EnvFile    string
}

// ColumnsConfig names the legacy dataset's column headers.
type ColumnsConfig struct {
	ProductID    string
	ProductName  string
	Quantity     string
	Price        string
	Unit         string
	SupplierID   string
	SupplierName string
}

// AccessDBConfig holds the legacy database export location.
type AccessDBConfig struct {
	Path string
}

// UploadsConfig holds upload persistence settings. PurchaseArchive is
// where the latest purchase file is kept for reprocessing.
type UploadsConfig struct {
	PurchaseArchive string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with CRMBRIDGE_ prefix (e.g. CRMBRIDGE_CRYPTO_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	// Credentials rotated through the init endpoint are persisted to a
	// plain env file; pick them up before reading the environment.
	_ = godotenv.Load()
	_ = godotenv.Load("/app/.env")

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars cover it.
	}

	v.SetEnvPrefix("CRMBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Remote: RemoteConfig{
			Webhook:           v.GetString("remote.webhook"),
			Timeout:           v.GetDuration("remote.timeout"),
			EntityTypeID:      v.GetInt64("remote.entity_type_id"),
			DealCategoryID:    v.GetInt64("remote.deal_category_id"),
			ProductSectionID:  v.GetInt64("remote.product_section_id"),
			CatalogIBlockID:   v.GetInt64("remote.catalog_iblock_id"),
			AssignedByID:      v.GetInt64("remote.assigned_by_id"),
			LineItemChunkSize: v.GetInt("remote.line_item_chunk_size"),
			LineItemPause:     v.GetDuration("remote.line_item_pause"),
			Fields: RemoteFieldsConfig{
				ProductAccessID:   v.GetString("remote.fields.product_access_id"),
				ContactAccessID:   v.GetString("remote.fields.contact_access_id"),
				ContactProductIDs: v.GetString("remote.fields.contact_product_ids"),
				SupplierFlag:      v.GetString("remote.fields.supplier_flag"),
				PriceRequest:      v.GetString("remote.fields.price_request"),
				DeliveryDate:      v.GetString("remote.fields.delivery_date"),
			},
		},
		Crypto: CryptoConfig{
			Key:        v.GetString("crypto.key"),
			IV:         v.GetString("crypto.iv"),
			Passphrase: v.GetString("crypto.passphrase"),
			Salt:       v.GetString("crypto.salt"),
			EnvFile:    v.GetString("crypto.env_file"),
		},
		Columns: ColumnsConfig{
			ProductID:    v.GetString("columns.product_id"),
			ProductName:  v.GetString("columns.product_name"),
			Quantity:     v.GetString("columns.quantity"),
			Price:        v.GetString("columns.price"),
			Unit:         v.GetString("columns.unit"),
			SupplierID:   v.GetString("columns.supplier_id"),
			SupplierName: v.GetString("columns.supplier_name"),
		},
		AccessDB: AccessDBConfig{
			Path: v.GetString("accessdb.path"),
		},
		Uploads: UploadsConfig{
			PurchaseArchive: v.GetString("uploads.purchase_archive"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crmbridge"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Uploads fan out into many remote calls; the slowest observed
		// full sync stays well under this.
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 32 << 20 // 32MB, uploads are base64 encoded
	}

	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 30 * time.Second
	}
	if cfg.Remote.EntityTypeID == 0 {
		cfg.Remote.EntityTypeID = 1068
	}
	if cfg.Remote.DealCategoryID == 0 {
		cfg.Remote.DealCategoryID = 12
	}
	if cfg.Remote.AssignedByID == 0 {
		cfg.Remote.AssignedByID = 122
	}
	if cfg.Remote.CatalogIBlockID == 0 {
		cfg.Remote.CatalogIBlockID = 14
	}
	if cfg.Remote.LineItemChunkSize == 0 {
		cfg.Remote.LineItemChunkSize = 10
	}
	if cfg.Remote.LineItemPause == 0 {
		cfg.Remote.LineItemPause = 500 * time.Millisecond
	}

	f := &cfg.Remote.Fields
	if f.ProductAccessID == "" {
		f.ProductAccessID = "UF_PRODUCT_ACCESS_ID"
	}
	if f.ContactAccessID == "" {
		f.ContactAccessID = "UF_CONTACT_ACCESS_ID"
	}
	if f.ContactProductIDs == "" {
		f.ContactProductIDs = "UF_CONTACT_PRODUCT_IDS"
	}
	if f.SupplierFlag == "" {
		f.SupplierFlag = "UF_IS_SUPPLIER"
	}

	if cfg.Crypto.EnvFile == "" {
		cfg.Crypto.EnvFile = ".env"
	}
	if cfg.Crypto.Salt == "" {
		cfg.Crypto.Salt = "crmbridge"
	}

	if cfg.AccessDB.Path == "" {
		cfg.AccessDB.Path = "legacy.db"
	}

	if cfg.Uploads.PurchaseArchive == "" {
		cfg.Uploads.PurchaseArchive = "last_purchase.csv"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
}

func (c *Config) validate() error {
	if c.Remote.LineItemChunkSize < 1 {
		return fmt.Errorf("remote.line_item_chunk_size must be positive")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.App.Env == "production" {
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
		if c.Log.Format == "console" {
			return fmt.Errorf("log.format must be json in production")
		}
	}
	return nil
}
