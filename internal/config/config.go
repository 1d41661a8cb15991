package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// ConfigurationError reports missing or invalid startup parameters. It is fatal: the process must not start.
type ConfigurationError struct {
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
	// LogFile enables a rotating log file next to stdout when set
	LogFile string `mapstructure:"log_file"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	WebSocketURL         string        `mapstructure:"websocket_url"`
	RPCURL               string        `mapstructure:"rpc_url"`
	ChainID              domain.Chain  `mapstructure:"chain_id"`
	ContractAddress      string        `mapstructure:"contract_address"`
	BlockHeadTTL         time.Duration `mapstructure:"block_head_ttl"`
	BlockHeadStaleWindow time.Duration `mapstructure:"block_head_stale_window"`
	// PollInterval is used for the live feed when the endpoint cannot push notifications (plain HTTP)
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// SyncConfig holds the event synchronization engine configuration
type SyncConfig struct {
	// LookbackBlocks bounds the startup backfill window: [max(0, head-LookbackBlocks), head]
	LookbackBlocks uint64 `mapstructure:"lookback_blocks"`
	// PageSize is the number of blocks requested per historical range query
	PageSize        uint64        `mapstructure:"page_size"`
	BackfillTimeout time.Duration `mapstructure:"backfill_timeout"`
	// MaxBufferedEvents caps the live events held while a backfill runs; overflow is recovered by a catch-up
	MaxBufferedEvents int `mapstructure:"max_buffered_events"`
	// Shards is the number of tokenId-keyed workers
	Shards       int           `mapstructure:"shards"`
	QueueSize    int           `mapstructure:"queue_size"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`

	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `mapstructure:"retry_max_interval"`
	// EventRetryMaxElapsed bounds how long a single event is retried on store errors (0 = until shutdown)
	EventRetryMaxElapsed time.Duration `mapstructure:"event_retry_max_elapsed"`
	// ReconnectInitialInterval and ReconnectMaxInterval shape the unbounded reconnect backoff
	ReconnectInitialInterval time.Duration `mapstructure:"reconnect_initial_interval"`
	ReconnectMaxInterval     time.Duration `mapstructure:"reconnect_max_interval"`
	// SweepInterval schedules a catch-up backfill while live (0 = disabled)
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// MetadataConfig holds metadata fetcher configuration
type MetadataConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IPFSGateways      []string      `mapstructure:"ipfs_gateways"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	// CacheTTL is how long fetched documents stay in redis (only used when redis is configured)
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig holds redis configuration. The metadata cache is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig holds NATS JetStream configuration. Notifications are disabled when URL is empty.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// MintSyncConfig holds configuration for mint-sync
type MintSyncConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	Sync       SyncConfig     `mapstructure:"sync"`
	Metadata   MetadataConfig `mapstructure:"metadata"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Redis      RedisConfig    `mapstructure:"redis"`
}

// Validate reports a ConfigurationError when connection parameters are missing
func (c *MintSyncConfig) Validate() error {
	var missing []string
	if c.Ethereum.WebSocketURL == "" && c.Ethereum.RPCURL == "" {
		missing = append(missing, "ethereum.websocket_url")
	}
	if c.Ethereum.ContractAddress == "" {
		missing = append(missing, "ethereum.contract_address")
	}
	if c.Database.Host == "" {
		missing = append(missing, "database.host")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	if !domain.IsValidChain(c.Ethereum.ChainID) {
		return &ConfigurationError{Reason: fmt.Sprintf("unsupported chain %q", c.Ethereum.ChainID)}
	}
	if c.Sync.Shards <= 0 {
		return &ConfigurationError{Reason: "sync.shards must be positive"}
	}
	if c.Sync.PageSize == 0 {
		return &ConfigurationError{Reason: "sync.page_size must be positive"}
	}

	return nil
}

// APIConfig holds configuration for the read-only API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
}

// Validate reports a ConfigurationError when connection parameters are missing
func (c *APIConfig) Validate() error {
	if c.Database.Host == "" {
		return &ConfigurationError{Missing: []string{"database.host"}}
	}
	return nil
}

// LoadMintSyncConfig loads configuration for mint-sync
func LoadMintSyncConfig(configFile string, envPath string) (*MintSyncConfig, error) {
	v := configureViper("mint-sync", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("ethereum.chain_id", string(domain.ChainEthereumSepolia))
	v.SetDefault("ethereum.block_head_ttl", "12s")
	v.SetDefault("ethereum.block_head_stale_window", "60s")
	v.SetDefault("ethereum.poll_interval", "12s")
	v.SetDefault("sync.lookback_blocks", 10000)
	v.SetDefault("sync.page_size", 2000)
	v.SetDefault("sync.backfill_timeout", "10m")
	v.SetDefault("sync.max_buffered_events", 10000)
	v.SetDefault("sync.shards", 8)
	v.SetDefault("sync.queue_size", 1024)
	v.SetDefault("sync.store_timeout", "10s")
	v.SetDefault("sync.retry_initial_interval", "500ms")
	v.SetDefault("sync.retry_max_interval", "30s")
	v.SetDefault("sync.event_retry_max_elapsed", "0s")
	v.SetDefault("metadata.timeout", "5s")
	v.SetDefault("metadata.requests_per_second", 10)
	v.SetDefault("metadata.burst", 10)
	v.SetDefault("sync.reconnect_initial_interval", "1s")
	v.SetDefault("sync.reconnect_max_interval", "1m")
	v.SetDefault("sync.sweep_interval", "5m")
	v.SetDefault("metadata.ipfs_gateways", []string{domain.DEFAULT_IPFS_GATEWAY})
	v.SetDefault("metadata.max_body_size", 1<<20)
	v.SetDefault("metadata.cache_ttl", "24h")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "MINT_EVENTS")
	v.SetDefault("nats.connection_name", "mint-sync")

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config MintSyncConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.idle_timeout", 60)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// readInConfig reads the config file, falling back to environment variables when no file is found
func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("FF_MINT_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"log_file",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		"database.auto_migrate",
		// Ethereum
		"ethereum.websocket_url",
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.contract_address",
		"ethereum.block_head_ttl",
		"ethereum.block_head_stale_window",
		"ethereum.poll_interval",
		// Sync
		"sync.lookback_blocks",
		"sync.page_size",
		"sync.backfill_timeout",
		"sync.max_buffered_events",
		"sync.shards",
		"sync.queue_size",
		"sync.store_timeout",
		"sync.retry_initial_interval",
		"sync.retry_max_interval",
		"sync.event_retry_max_elapsed",
		"sync.reconnect_initial_interval",
		"sync.reconnect_max_interval",
		"sync.sweep_interval",
		// Metadata
		"metadata.timeout",
		"metadata.requests_per_second",
		"metadata.burst",
		"metadata.ipfs_gateways",
		"metadata.max_body_size",
		"metadata.cache_ttl",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
