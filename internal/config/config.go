package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Configuration  string        `mapstructure:"configuration"`
	MinMemory      string        `mapstructure:"min_memory"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	URL            string        `mapstructure:"url"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
}

// DockerConfig selects the container engine endpoint. An empty host falls
// back to the DOCKER_* environment.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// ProbeConfig bounds the readiness probes.
type ProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// OrchestratorConfig tunes deployment and shutdown.
type OrchestratorConfig struct {
	NetworkBackoff time.Duration `mapstructure:"network_backoff"`
	NetworkRetries int           `mapstructure:"network_retries"`
	StopTimeout    time.Duration `mapstructure:"stop_timeout"`
}

// APIConfig holds the HTTP API configuration.
type APIConfig struct {
	Listen string `mapstructure:"listen"`
}

// LockConfig holds the etcd-backed orchestration lock configuration.
type LockConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoints     []string      `mapstructure:"endpoints"`
	Key           string        `mapstructure:"key"`
	TTL           int64         `mapstructure:"ttl"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// Config is the top-level configuration struct.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Logging      LoggingConfig      `mapstructure:"log"`
	Docker       DockerConfig       `mapstructure:"docker"`
	Probe        ProbeConfig        `mapstructure:"probe"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	API          APIConfig          `mapstructure:"api"`
	Lock         LockConfig         `mapstructure:"lock"`
}

// MaxProbeTimeout caps a single probe call.
const MaxProbeTimeout = time.Second

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
// An empty configFile looks for config.yaml in the working directory.
func InitConfig(configFile string) error {
	// Set defaults for each sub-configuration.
	viper.SetDefault("app.configuration", DefaultConfigurationName)
	viper.SetDefault("app.min_memory", "6GB")
	viper.SetDefault("app.poll_interval", "1500ms")
	viper.SetDefault("app.startup_timeout", "10m")
	viper.SetDefault("app.url", "http://localhost:8080/content-app/")
	viper.SetDefault("log.log_level", "INFO")
	viper.SetDefault("docker.host", "")
	viper.SetDefault("probe.timeout", "1s")
	viper.SetDefault("orchestrator.network_backoff", "500ms")
	viper.SetDefault("orchestrator.network_retries", 3)
	viper.SetDefault("orchestrator.stop_timeout", "10s")
	viper.SetDefault("api.listen", "127.0.0.1:8585")
	viper.SetDefault("lock.enabled", false)
	viper.SetDefault("lock.endpoints", []string{"localhost:2379"})
	viper.SetDefault("lock.key", "/locks/alfresco-orchestrator")
	viper.SetDefault("lock.ttl", 30)
	viper.SetDefault("lock.timeout", "2s")
	viper.SetDefault("lock.retry_interval", "100ms")

	// Specify the config file details.
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config") // Looks for config.yaml
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate normalizes out-of-range values and rejects unusable ones.
func (c *Config) Validate() error {
	if c.App.PollInterval <= 0 {
		return fmt.Errorf("app.poll_interval must be positive, got %s", c.App.PollInterval)
	}
	if c.Probe.Timeout <= 0 || c.Probe.Timeout > MaxProbeTimeout {
		c.Probe.Timeout = MaxProbeTimeout
	}
	if c.Orchestrator.NetworkRetries < 1 {
		c.Orchestrator.NetworkRetries = 1
	}
	if _, ok := Configurations[c.App.Configuration]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownConfiguration, c.App.Configuration)
	}
	if _, err := units.RAMInBytes(c.App.MinMemory); err != nil {
		return fmt.Errorf("app.min_memory: %w", err)
	}
	if c.Lock.Enabled && len(c.Lock.Endpoints) == 0 {
		return fmt.Errorf("lock.endpoints is required when lock.enabled is set")
	}
	return nil
}
