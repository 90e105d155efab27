package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	API      *APIconfig      `yaml:"api"`
	Realtime *Realtimeconfig `yaml:"realtime"`
	Map      *Mapconfig      `yaml:"map"`
	Store    *Storeconfig    `yaml:"store"`
	Tracking *Trackingconfig `yaml:"tracking"`
	Log      *Loggerconfig   `yaml:"log"`
}

type APIconfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	WebhookURL     string `yaml:"webhook_url"`
	MockAuth       bool   `yaml:"mock_auth"`
}

type Realtimeconfig struct {
	URL string `yaml:"url"`
}

type Mapconfig struct {
	ProviderKey string `yaml:"provider_key"`
}

type Storeconfig struct {
	Path      string `yaml:"path"`
	QueuePath string `yaml:"queue_path"`
	Secret    string `yaml:"secret"`
}

type Trackingconfig struct {
	GraceMillis        int     `yaml:"grace_ms"`
	ForegroundInterval int     `yaml:"foreground_interval_ms"`
	ForegroundDistance float64 `yaml:"foreground_distance_m"`
	BackgroundInterval int     `yaml:"background_interval_ms"`
	BackgroundDistance float64 `yaml:"background_distance_m"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Tracking.GraceMillis) * time.Millisecond
}

func (c *Config) ForegroundWatch() (time.Duration, float64) {
	return time.Duration(c.Tracking.ForegroundInterval) * time.Millisecond, c.Tracking.ForegroundDistance
}

func (c *Config) BackgroundWatch() (time.Duration, float64) {
	return time.Duration(c.Tracking.BackgroundInterval) * time.Millisecond, c.Tracking.BackgroundDistance
}

func New() (*Config, error) {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return def
		}
		return val
	}

	getEnvFloat := func(key string, def float64) float64 {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return def
		}
		return val
	}

	cnf := &Config{
		API: &APIconfig{
			BaseURL:        getEnv("API_URL", "http://localhost:5001"),
			TimeoutSeconds: getEnvInt("API_TIMEOUT_SECONDS", 30),
			WebhookURL:     getEnv("WEBHOOK_URL", ""),
			MockAuth:       getEnv("MOCK_AUTH", "") == "1",
		},
		Realtime: &Realtimeconfig{
			URL: getEnv("WS_URL", "ws://localhost:5001/ws"),
		},
		Map: &Mapconfig{
			ProviderKey: getEnv("MAPS_API_KEY", ""),
		},
		Store: &Storeconfig{
			Path:      getEnv("STORE_PATH", "tracker-store.json"),
			QueuePath: getEnv("QUEUE_PATH", "offline-loc-queue.json"),
			Secret:    getEnv("STORE_SECRET", ""),
		},
		Tracking: &Trackingconfig{
			GraceMillis:        getEnvInt("GRACE_MS", 3000),
			ForegroundInterval: getEnvInt("FG_INTERVAL_MS", 3000),
			ForegroundDistance: getEnvFloat("FG_DISTANCE_M", 5),
			BackgroundInterval: getEnvInt("BG_INTERVAL_MS", 10000),
			BackgroundDistance: getEnvFloat("BG_DISTANCE_M", 20),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	return cnf, nil
}

// NewFromYAML loads a config file; anything the file leaves unset keeps the
// environment/default value.
func NewFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cnf, err := New()
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cnf); err != nil {
		return nil, err
	}

	return cnf, nil
}
