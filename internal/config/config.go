package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Storage   StorageConfig   `json:"storage"`
	Ledger    LedgerConfig    `json:"ledger"`
	Anchor    AnchorConfig    `json:"anchor"`
	Lifecycle LifecycleConfig `json:"lifecycle"`
	Verify    VerifyConfig    `json:"verify"`
	Logging   LoggingConfig   `json:"logging"`
}

// Duration decodes from a Go duration string ("2s") or integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("duration must be a string or integer nanoseconds")
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
	IdleTimeout  Duration `json:"idle_timeout"`
	MultipartMB  int64    `json:"multipart_memory_mb"` // in-memory part of an upload; larger files spill to disk
}

// DatabaseConfig selects where anchored evidence is persisted.
type DatabaseConfig struct {
	Driver   string `json:"driver"` // memory | postgres
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type StorageConfig struct {
	Backend   string `json:"backend"` // memory | minio | s3
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

type LedgerConfig struct {
	Backend      string   `json:"backend"` // mock | fabric
	MockDelay    Duration `json:"mock_delay"`
	MSPID        string   `json:"msp_id"`
	CryptoPath   string   `json:"crypto_path"`
	User         string   `json:"user"`
	PeerEndpoint string   `json:"peer_endpoint"`
	GatewayPeer  string   `json:"gateway_peer"`
	Channel      string   `json:"channel"`
	Chaincode    string   `json:"chaincode"`
}

type AnchorConfig struct {
	BatchSize    int      `json:"batch_size"` // 0 writes one transaction per file
	BatchMaxWait Duration `json:"batch_max_wait"`
	Organization string   `json:"organization"`
}

type LifecycleConfig struct {
	Mode       string   `json:"mode"` // mock | remote | local
	Stagger    Duration `json:"stagger"`
	MockDelay  Duration `json:"mock_delay"`
	RemoteURL  string   `json:"remote_url"`
	Timeout    Duration `json:"timeout"`
	MaxRetries int      `json:"max_retries"`
}

type VerifyConfig struct {
	Resolver     string   `json:"resolver"` // random | registry
	Delay        Duration `json:"delay"`
	FoundRatio   float64  `json:"found_ratio"`
	Organization string   `json:"organization"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// Default returns the configuration used when no file or environment
// overrides are present: everything in memory, mocked ledger and lifecycle.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
			IdleTimeout:  Duration(120 * time.Second),
			MultipartMB:  32,
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "evidence_registry",
			SSLMode: "disable",
		},
		Storage: StorageConfig{
			Backend: "memory",
			Bucket:  "evidence",
			Region:  "us-east-1",
		},
		Ledger: LedgerConfig{
			Backend:      "mock",
			MockDelay:    Duration(200 * time.Millisecond),
			MSPID:        "Org1MSP",
			CryptoPath:   "../fabric-network/fabric-samples/test-network/organizations/peerOrganizations/org1.example.com",
			User:         "User1@org1.example.com",
			PeerEndpoint: "localhost:7051",
			GatewayPeer:  "peer0.org1.example.com",
			Channel:      "mychannel",
			Chaincode:    "basic",
		},
		Anchor: AnchorConfig{
			BatchMaxWait: Duration(25 * time.Millisecond),
			Organization: "SecureOrg Inc.",
		},
		Lifecycle: LifecycleConfig{
			Mode:       "mock",
			Stagger:    Duration(500 * time.Millisecond),
			MockDelay:  Duration(2 * time.Second),
			RemoteURL:  "http://localhost:5000",
			Timeout:    Duration(30 * time.Second),
			MaxRetries: 0,
		},
		Verify: VerifyConfig{
			Resolver:     "registry",
			Delay:        Duration(2 * time.Second),
			FoundRatio:   0.8,
			Organization: "SecureOrg Inc.",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from .env, the JSON file at configPath (when it
// exists) and environment variables, in that order of precedence.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
		return nil
	}

	str("SERVER_HOST", &config.Server.Host)
	if err := num("SERVER_PORT", &config.Server.Port); err != nil {
		return err
	}
	str("DATABASE_DRIVER", &config.Database.Driver)
	str("DATABASE_HOST", &config.Database.Host)
	if err := num("DATABASE_PORT", &config.Database.Port); err != nil {
		return err
	}
	str("DATABASE_USER", &config.Database.User)
	str("DATABASE_PASSWORD", &config.Database.Password)
	str("DATABASE_DBNAME", &config.Database.DBName)
	str("STORAGE_BACKEND", &config.Storage.Backend)
	str("STORAGE_ENDPOINT", &config.Storage.Endpoint)
	str("STORAGE_ACCESS_KEY", &config.Storage.AccessKey)
	str("STORAGE_SECRET_KEY", &config.Storage.SecretKey)
	str("STORAGE_BUCKET", &config.Storage.Bucket)
	str("LEDGER_BACKEND", &config.Ledger.Backend)
	str("LIFECYCLE_MODE", &config.Lifecycle.Mode)
	str("LIFECYCLE_REMOTE_URL", &config.Lifecycle.RemoteURL)
	str("VERIFY_RESOLVER", &config.Verify.Resolver)
	str("LOG_LEVEL", &config.Logging.Level)
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

// Validate rejects unknown backends and out-of-range values.
func (c *Config) Validate() error {
	return errors.Join(
		oneOf("database.driver", c.Database.Driver, "memory", "postgres"),
		oneOf("storage.backend", c.Storage.Backend, "memory", "minio", "s3"),
		oneOf("ledger.backend", c.Ledger.Backend, "mock", "fabric"),
		oneOf("lifecycle.mode", c.Lifecycle.Mode, "mock", "remote", "local"),
		oneOf("verify.resolver", c.Verify.Resolver, "random", "registry"),
		func() error {
			if c.Verify.FoundRatio < 0 || c.Verify.FoundRatio > 1 {
				return fmt.Errorf("verify.found_ratio: %v is outside [0, 1]", c.Verify.FoundRatio)
			}
			return nil
		}(),
	)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
