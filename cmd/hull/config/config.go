package config

import (
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
)

type Config struct {
	RegistryURL   string
	AuthURL       string
	Service       string
	HTTPTimeout   time.Duration
	MaxLayerBytes int64
}

// Load loads configuration from environment variables.
// Automatically loads .env file if present.
func Load() *Config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		RegistryURL:   getEnv("HULL_REGISTRY_URL", "https://registry.hub.docker.com"),
		AuthURL:       getEnv("HULL_AUTH_URL", "https://auth.docker.io"),
		Service:       getEnv("HULL_REGISTRY_SERVICE", "registry.docker.io"),
		HTTPTimeout:   getDuration("HULL_HTTP_TIMEOUT", 0),
		MaxLayerBytes: getSize("HULL_MAX_LAYER_BYTES", 4*datasize.GB),
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getSize(key string, defaultValue datasize.ByteSize) int64 {
	value := os.Getenv(key)
	if value == "" {
		return int64(defaultValue.Bytes())
	}
	size, err := datasize.ParseString(value)
	if err != nil {
		return int64(defaultValue.Bytes())
	}
	return int64(size.Bytes())
}
