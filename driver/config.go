package driver

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EndpointsKey env variable holding comma separated node endpoints
	EndpointsKey = "ENDPOINTS"
	// DefaultEnvFile loaded when present
	DefaultEnvFile = ".env"
)

// ErrNoEndpoints endpoints are not configured
var ErrNoEndpoints = errors.New("ENDPOINTS env var not found")

// Config endpoints to test, in configured order
type Config struct {
	endpoints []string
}

// NewConfig splits raw on commas, endpoints are passed as is
func NewConfig(raw string) (Config, error) {
	if raw == "" {
		return Config{}, ErrNoEndpoints
	}
	return Config{endpoints: strings.Split(raw, ",")}, nil
}

// Endpoints copy of configured endpoints
func (c Config) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// LoadConfig reads endpoints from env, envFile is loaded first if it exists,
// process environment overrides file values
func LoadConfig(envFile string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, errors.Wrapf(err, "read env file %s", envFile)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "stat env file %s", envFile)
		}
	}
	return NewConfig(v.GetString(EndpointsKey))
}
