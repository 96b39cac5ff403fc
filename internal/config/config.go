package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aatumaykin/jobqueue/internal/constants"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/transport"
)

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	cfg := &Config{
		Defaults: DefaultsConfig{
			Priority:       options.PriorityNormal.String(),
			Timeout:        60,
			AllowedRetries: 0,
			RetryWaitTime:  1,
			PersistOutput:  options.PersistOutputError.String(),
			ValidateSSL:    true,
		},
	}
	applyDefaults(cfg)
	return cfg
}

// Load загружает конфигурацию из TOML файла.
// Отсутствующие в файле ключи получают значения по умолчанию.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandEnvVars(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// LoadOrDefault загружает файл, если он существует, иначе возвращает Default
// с применёнными переопределениями из окружения
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(expandHome(path)); err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			expandEnvVars(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	return Load(path)
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errors []error

	if _, err := transport.ParseEndpoint(c.Client.Endpoint); err != nil {
		errors = append(errors, fmt.Errorf("invalid client.endpoint: %q", c.Client.Endpoint))
	}
	for name, ms := range map[string]int{
		"client.connect_timeout_ms": c.Client.ConnectTimeoutMs,
		"client.read_timeout_ms":    c.Client.ReadTimeoutMs,
		"client.write_timeout_ms":   c.Client.WriteTimeoutMs,
		"client.poll_interval_ms":   c.Client.PollIntervalMs,
	} {
		if ms <= 0 {
			errors = append(errors, fmt.Errorf("%s must be > 0 (got %d)", name, ms))
		}
	}

	if _, err := c.Defaults.Effective(); err != nil {
		errors = append(errors, err)
	}

	if !logger.ValidLevel(c.Logging.Level) {
		errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		errors = append(errors, fmt.Errorf("metrics.textfile is required when metrics are enabled"))
	}

	return errors
}

// Effective переводит секцию [defaults] в системные параметры заданий
func (d DefaultsConfig) Effective() (options.Effective, error) {
	priority, err := options.ParsePriority(d.Priority)
	if err != nil {
		return options.Effective{}, fmt.Errorf("invalid defaults.priority: %w", err)
	}
	persist, err := options.ParsePersistOutput(d.PersistOutput)
	if err != nil {
		return options.Effective{}, fmt.Errorf("invalid defaults.persist_output: %w", err)
	}
	// Границы проверяются теми же правилами, что и у параметров задания
	if _, err := options.New(
		options.WithTimeout(d.Timeout),
		options.WithAllowedRetries(d.AllowedRetries),
		options.WithRetryWaitTime(d.RetryWaitTime),
	); err != nil {
		return options.Effective{}, fmt.Errorf("invalid [defaults]: %w", err)
	}
	return options.Effective{
		Priority:       priority,
		Timeout:        d.Timeout,
		AllowedRetries: d.AllowedRetries,
		RetryWaitTime:  d.RetryWaitTime,
		PersistOutput:  persist,
		ValidateSSL:    d.ValidateSSL,
	}, nil
}

// LoggerConfig возвращает настройки логгера
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Logging.Level, Format: c.Logging.Format, Output: c.Logging.Output}
}

// applyDefaults применяет значения по умолчанию к незаданным полям
func applyDefaults(c *Config) {
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = constants.DefaultEndpoint
	}
	if c.Client.ConnectTimeoutMs == 0 {
		c.Client.ConnectTimeoutMs = constants.DefaultConnectTimeoutMs
	}
	if c.Client.ReadTimeoutMs == 0 {
		c.Client.ReadTimeoutMs = constants.DefaultReadTimeoutMs
	}
	if c.Client.WriteTimeoutMs == 0 {
		c.Client.WriteTimeoutMs = constants.DefaultWriteTimeoutMs
	}
	if c.Client.PollIntervalMs == 0 {
		c.Client.PollIntervalMs = constants.DefaultPollIntervalMs
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = constants.DefaultMetricsNamespace
	}
}

// expandEnvVars раскрывает переменные окружения и применяет JOBQUEUE_ENDPOINT
func expandEnvVars(c *Config) {
	c.Client.Endpoint = expandEnv(c.Client.Endpoint)
	if v := os.Getenv(constants.EnvEndpoint); v != "" {
		c.Client.Endpoint = v
	}
	c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
	c.Metrics.Textfile = expandHome(expandEnv(c.Metrics.Textfile))
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}
	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	key, def, hasDefault := strings.Cut(s[2:end], ":")
	if val := os.Getenv(key); val != "" {
		return val
	}
	if hasDefault {
		return def
	}
	return ""
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, rest)
	}
	return path
}
