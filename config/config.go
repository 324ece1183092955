package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SwitchBot SwitchBotConfig `yaml:"switchbot"`
	HTTP      HTTPConfig      `yaml:"http"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Pushover  PushoverConfig  `yaml:"pushover"`
	Log       LogConfig       `yaml:"log"`
}

type SwitchBotConfig struct {
	Token   string `yaml:"token"`
	Secret  string `yaml:"secret"`
	Nonce   string `yaml:"nonce"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	// RetryAttempts bounds attempts for read requests; commands are sent once.
	RetryAttempts int `yaml:"retry_attempts"`
}

type HTTPConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
	RateLimit int    `yaml:"rate_limit"`
}

type MQTTConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	TopicPrefix  string `yaml:"topic_prefix"`
	PollInterval string `yaml:"poll_interval"`
}

type PushoverConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML file, expands ${VAR} references and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.SwitchBot.BaseURL == "" {
		c.SwitchBot.BaseURL = "https://api.switch-bot.com"
	}
	if c.SwitchBot.Timeout == "" {
		c.SwitchBot.Timeout = "10s"
	}
	if c.SwitchBot.RetryAttempts == 0 {
		c.SwitchBot.RetryAttempts = 3
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 30
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "switchbot"
	}
	if c.MQTT.PollInterval == "" {
		c.MQTT.PollInterval = "5m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the fields every subcommand needs.
func (c *Config) Validate() error {
	var errs []error
	if c.SwitchBot.Token == "" {
		errs = append(errs, errors.New("switchbot.token is required"))
	}
	if c.SwitchBot.Secret == "" {
		errs = append(errs, errors.New("switchbot.secret is required"))
	}
	if _, err := time.ParseDuration(c.SwitchBot.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("switchbot.timeout: %w", err))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	return errors.Join(errs...)
}

func (c SwitchBotConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
