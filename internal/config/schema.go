// Package config provides configuration loading and validation for the job
// queue client and jqctl.
//
// Configuration structure:
//   - [client]: daemon endpoint, timeouts and wait-loop poll interval
//   - [defaults]: system job defaults used when the daemon does not report them
//   - [logging]: logging level, format, and output
//   - [metrics]: Prometheus collectors and their textfile export
//
// Environment variables:
// String values can reference environment variables using ${VAR} or
// ${VAR:default} syntax, e.g. endpoint = "${JQ_ENDPOINT:tcp://127.0.0.1:10091}".
// JOBQUEUE_ENDPOINT, when set, overrides client.endpoint.
package config

import "time"

// Config represents the main client configuration.
type Config struct {
	Client   ClientConfig   `toml:"client"`
	Defaults DefaultsConfig `toml:"defaults"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// ClientConfig - подключение к демону
type ClientConfig struct {
	Endpoint         string `toml:"endpoint"`
	ConnectTimeoutMs int    `toml:"connect_timeout_ms"`
	ReadTimeoutMs    int    `toml:"read_timeout_ms"`
	WriteTimeoutMs   int    `toml:"write_timeout_ms"`
	PollIntervalMs   int    `toml:"poll_interval_ms"`
}

// ConnectTimeout возвращает таймаут подключения
func (c ClientConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// ReadTimeout возвращает таймаут чтения ответа
func (c ClientConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout возвращает таймаут записи запроса
func (c ClientConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// PollInterval возвращает интервал опроса при ожидании смены статуса очереди
func (c ClientConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// DefaultsConfig - системные параметры заданий
type DefaultsConfig struct {
	Priority       string `toml:"priority"`
	Timeout        int    `toml:"timeout"`
	AllowedRetries int    `toml:"allowed_retries"`
	RetryWaitTime  int    `toml:"retry_wait_time"`
	PersistOutput  string `toml:"persist_output"`
	ValidateSSL    bool   `toml:"validate_ssl"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// MetricsConfig - Prometheus метрики клиента
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	// Textfile - файл для textfile collector node_exporter, перезаписывается после каждой команды jqctl
	Textfile string `toml:"textfile"`
}
