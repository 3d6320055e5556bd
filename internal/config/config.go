package config

import (
	"encoding/json"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Queue    *queueConfig
	Results  *resultsConfig
	Reaper   *reaperConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"tesserae"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
	MongoURI string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
}

type svcConfig struct {
	Address         string    `envconfig:"TESS_ADDRESS" default:":5000"`
	MetricsAddress  string    `envconfig:"TESS_METRICS_ADDRESS" default:":8080"`
	BaseUrl         string    `envconfig:"TESS_BASE_URL" default:""`
	LogLevel        string    `envconfig:"TESS_LOG_LEVEL" default:"info"`
	LogFormat       string    `envconfig:"TESS_LOG_FORMAT" default:"console"`
	MigrationFolder string    `envconfig:"TESS_MIGRATIONS_FOLDER" default:""`
	AllowedOrigins  []string  `envconfig:"TESS_ALLOWED_ORIGINS" default:"*"`
	LatencyBuckets  []float64 `envconfig:"TESS_HTTP_LATENCY_BUCKETS"`
}

type queueConfig struct {
	// Backend is either "memory" (in-process bounded queue) or "river" (postgres backed).
	Backend       string        `envconfig:"TESS_QUEUE_BACKEND" default:"river"`
	Name          string        `envconfig:"TESS_QUEUE_NAME" default:"searches"`
	Capacity      int           `envconfig:"TESS_QUEUE_CAPACITY" default:"100"`
	RateLimit     float64       `envconfig:"TESS_QUEUE_RATE_LIMIT" default:"0"`
	RateBurst     int           `envconfig:"TESS_QUEUE_RATE_BURST" default:"0"`
	MaxAttempts   int           `envconfig:"TESS_QUEUE_MAX_ATTEMPTS" default:"1"`
	DepthInterval time.Duration `envconfig:"TESS_QUEUE_DEPTH_INTERVAL" default:"15s"`
}

type resultsConfig struct {
	MaxPerPage   int `envconfig:"TESS_RESULTS_MAX_PER_PAGE" default:"1000"`
	JobCacheSize int `envconfig:"TESS_JOB_CACHE_SIZE" default:"1024"`
}

type reaperConfig struct {
	MaxAge    time.Duration `envconfig:"TESS_REAPER_MAX_AGE" default:"1h"`
	BatchSize int           `envconfig:"TESS_REAPER_BATCH" default:"500"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns the configuration used by tests: an in-memory sqlite database and an
// in-process queue.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: "file::memory:?cache=shared",
		},
		Service: &svcConfig{
			Address:        ":5000",
			MetricsAddress: ":8080",
			LogLevel:       "info",
			LogFormat:      "console",
			AllowedOrigins: []string{"*"},
		},
		Queue: &queueConfig{
			Backend:       "memory",
			Name:          "searches",
			Capacity:      100,
			MaxAttempts:   1,
			DepthInterval: 15 * time.Second,
		},
		Results: &resultsConfig{
			MaxPerPage:   1000,
			JobCacheSize: 1024,
		},
		Reaper: &reaperConfig{
			MaxAge:    time.Hour,
			BatchSize: 500,
		},
	}
}

func (c *Config) String() string {
	redacted := *c
	if c.Database != nil {
		db := *c.Database
		db.Password = "*****"
		redacted.Database = &db
	}
	val, _ := json.Marshal(redacted)
	return string(val)
}
