// Package config provides runtime configuration values for the loader and the batch source.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration knobs for the loader run and the batch source server.
type Config struct {
	// Loader.
	SourceBaseURL    string        `yaml:"source_base_url"`
	SourceListPath   string        `yaml:"source_list_path"`
	SourceDataPath   string        `yaml:"source_data_path"`
	HTTPTimeout      time.Duration `yaml:"-"`
	StoreDriver      string        `yaml:"store_driver"`
	StoreDSN         string        `yaml:"store_dsn"`
	StoreTable       string        `yaml:"store_table"`
	StoreCreateTable bool          `yaml:"store_create_table"`
	PushgatewayURL   string        `yaml:"pushgateway_url"`
	StrictExit       bool          `yaml:"strict_exit"`

	// Batch source server.
	HTTPAddr        string        `yaml:"http_addr"`
	DataDir         string        `yaml:"data_dir"`
	BatchListFile   string        `yaml:"batch_list_file"`
	ShutdownTimeout time.Duration `yaml:"-"`

	LogLevel string `yaml:"log_level"`
}

// fileConfig carries the fields whose YAML form differs from the Go type.
type fileConfig struct {
	Config             `yaml:",inline"`
	HTTPTimeoutSec     int `yaml:"http_timeout_sec"`
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvs(key string, def time.Duration) time.Duration {
	sec := atoienv(key, int(def/time.Second))
	return time.Duration(sec) * time.Second
}

func defaults() Config {
	return Config{
		SourceBaseURL:   "http://localhost:5000",
		SourceListPath:  "/batches/batch-list",
		SourceDataPath:  "/batch-data/",
		HTTPTimeout:     30 * time.Second,
		StoreDriver:     "postgres",
		StoreTable:      "orders",
		HTTPAddr:        ":5000",
		DataDir:         "data",
		BatchListFile:   "batch_list.csv",
		ShutdownTimeout: 15 * time.Second,
		LogLevel:        "info",
	}
}

// applyEnv overlays environment variables on c, keeping c's values as defaults.
func applyEnv(c Config) Config {
	c.SourceBaseURL = getenv("SOURCE_BASE_URL", c.SourceBaseURL)
	c.SourceListPath = getenv("SOURCE_LIST_PATH", c.SourceListPath)
	c.SourceDataPath = getenv("SOURCE_DATA_PATH", c.SourceDataPath)
	c.HTTPTimeout = durenvs("HTTP_TIMEOUT", c.HTTPTimeout)
	c.StoreDriver = strings.ToLower(getenv("STORE_DRIVER", c.StoreDriver))
	c.StoreDSN = getenv("STORE_DSN", c.StoreDSN)
	c.StoreTable = getenv("STORE_TABLE", c.StoreTable)
	c.StoreCreateTable = boolenv("STORE_CREATE_TABLE", c.StoreCreateTable)
	c.PushgatewayURL = getenv("PUSHGATEWAY_URL", c.PushgatewayURL)
	c.StrictExit = boolenv("STRICT_EXIT", c.StrictExit)
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.DataDir = getenv("DATA_DIR", c.DataDir)
	c.BatchListFile = getenv("BATCH_LIST_FILE", c.BatchListFile)
	c.ShutdownTimeout = durenvs("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	return c
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return applyEnv(defaults())
}

// LoadFile reads a YAML file over the defaults and then applies environment
// overrides, so env always wins over the file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	d := defaults()
	fc := fileConfig{
		Config:             d,
		HTTPTimeoutSec:     int(d.HTTPTimeout / time.Second),
		ShutdownTimeoutSec: int(d.ShutdownTimeout / time.Second),
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	c := fc.Config
	c.HTTPTimeout = time.Duration(fc.HTTPTimeoutSec) * time.Second
	c.ShutdownTimeout = time.Duration(fc.ShutdownTimeoutSec) * time.Second
	return applyEnv(c), nil
}
