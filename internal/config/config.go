package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ilnaes/downstream/internal/touch"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete downstream configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Auth   AuthConfig   `yaml:"auth"`
	Redis  RedisConfig  `yaml:"redis"`
	Store  StoreConfig  `yaml:"store"`
	Work   WorkConfig   `yaml:"work"`
	Touch  touch.Config `yaml:"touch"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	TickRate  int    `yaml:"tick_rate"` // frames per second
	Transport string `yaml:"transport"` // websocket, redis
	Advertise bool   `yaml:"advertise"` // announce over mDNS
	Instance  string `yaml:"instance"`  // mDNS instance name
}

type ClientConfig struct {
	ServerURL            string        `yaml:"server_url"` // empty means discover
	RequestWorldInterval time.Duration `yaml:"request_world_interval"`
	PacketsPerUpdate     int           `yaml:"packets_per_update"`
	TickRate             int           `yaml:"tick_rate"`
	DiscoveryTimeout     time.Duration `yaml:"discovery_timeout"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"` // prefix of the up/down channels
}

// StoreConfig selects where world snapshots are kept. An empty driver
// disables snapshots.
type StoreConfig struct {
	Driver           string        `yaml:"driver"` // mongo, bolt, postgres
	URI              string        `yaml:"uri"`    // mongo or postgres connection string
	Path             string        `yaml:"path"`   // bolt file
	Database         string        `yaml:"database"`
	Collection       string        `yaml:"collection"` // mongo collection, bolt bucket, postgres table
	Scene            string        `yaml:"scene"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

type WorkConfig struct {
	PoolSize         int `yaml:"pool_size"`
	QueueSize        int `yaml:"queue_size"`
	ResultsPerUpdate int `yaml:"results_per_update"`
}

const (
	TransportWebsocket = "websocket"
	TransportRedis     = "redis"

	StoreMongo    = "mongo"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			TickRate:  60,
			Transport: TransportWebsocket,
			Instance:  "downstream",
		},
		Client: ClientConfig{
			RequestWorldInterval: time.Second,
			PacketsPerUpdate:     8,
			TickRate:             60,
			DiscoveryTimeout:     5 * time.Second,
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
		Redis: RedisConfig{
			Addr:    "127.0.0.1:6379",
			Channel: "downstream",
		},
		Store: StoreConfig{
			Path:             "downstream.db",
			Database:         "downstream",
			Collection:       "snapshots",
			Scene:            "default",
			SnapshotInterval: 30 * time.Second,
		},
		Work: WorkConfig{
			PoolSize:         4,
			QueueSize:        64,
			ResultsPerUpdate: 1,
		},
		Touch: touch.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file and finally the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DOWNSTREAM_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DOWNSTREAM_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("DOWNSTREAM_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("DOWNSTREAM_SERVER_URL"); v != "" {
		c.Client.ServerURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("DOWNSTREAM_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" && c.Store.Driver == StoreMongo {
		c.Store.URI = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Store.Driver == StorePostgres {
		c.Store.URI = v
	}
	if v := os.Getenv("DOWNSTREAM_TICK_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOWNSTREAM_TICK_RATE: %w", err)
		}
		c.Server.TickRate = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("server tick_rate must be positive, got %d", c.Server.TickRate)
	}
	if c.Client.TickRate <= 0 {
		return fmt.Errorf("client tick_rate must be positive, got %d", c.Client.TickRate)
	}
	switch c.Server.Transport {
	case TransportWebsocket, TransportRedis:
	default:
		return fmt.Errorf("unknown transport %q", c.Server.Transport)
	}
	if c.Client.PacketsPerUpdate <= 0 {
		return errors.New("client packets_per_update must be positive")
	}
	if c.Client.RequestWorldInterval <= 0 {
		return errors.New("client request_world_interval must be positive")
	}
	if c.Work.PoolSize <= 0 || c.Work.QueueSize <= 0 || c.Work.ResultsPerUpdate <= 0 {
		return errors.New("work sizes must be positive")
	}
	switch c.Store.Driver {
	case "":
	case StoreMongo, StorePostgres:
		if c.Store.URI == "" {
			return fmt.Errorf("store %s needs a uri", c.Store.Driver)
		}
	case StoreBolt:
		if c.Store.Path == "" {
			return errors.New("store bolt needs a path")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver != "" && c.Store.SnapshotInterval <= 0 {
		return errors.New("store snapshot_interval must be positive")
	}
	return c.Touch.Validate()
}

// TickInterval is the server frame duration.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Server.TickRate)
}
