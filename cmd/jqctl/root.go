package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/jobqueue/internal/config"
	"github.com/aatumaykin/jobqueue/internal/constants"
	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/jobqueue"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/metrics"
	"github.com/aatumaykin/jobqueue/internal/retry"
	"github.com/aatumaykin/jobqueue/internal/version"
)

var (
	rootConfigPath string
	rootEndpoint   string
	rootOutput     string
	rootRetries    int
	rootDebug      bool
)

// app - окружение команды, собранное в PersistentPreRunE
var app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jqctl",
	Short: "jqctl - job queue daemon client",
	Long: `jqctl manages queues and jobs of a job queue daemon: it schedules CLI and
HTTP jobs, inspects and cancels them, and suspends, resumes or deletes queues.

The daemon endpoint comes from --endpoint, JOBQUEUE_ENDPOINT or client.endpoint
in the config file. "jqctl sim" runs an in-memory daemon for local testing.`,
	Version:            Version,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfigPath, "config", "c", "", "path to config file (default $JOBQUEUE_CONFIG or "+constants.DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVarP(&rootEndpoint, "endpoint", "e", "", "daemon endpoint (tcp://host:port, unix:///path, ipc:///path)")
	rootCmd.PersistentFlags().StringVarP(&rootOutput, "output", "o", outputText, "output format: text, json, yaml")
	rootCmd.PersistentFlags().IntVar(&rootRetries, "retries", 3, "attempts for read-only commands on network errors")
	rootCmd.PersistentFlags().BoolVarP(&rootDebug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(simCmd)
}

// setup загружает .env и конфигурацию и создаёт логгер и метрики
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		return fmt.Errorf("failed to load %s: %w", constants.DefaultEnvPath, err)
	}
	if err := validOutput(rootOutput); err != nil {
		return err
	}

	path := configPath()
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf(constants.MsgConfigLoadError, err)
	}
	if rootEndpoint != "" {
		cfg.Client.Endpoint = rootEndpoint
	}
	if rootDebug {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.cfg = cfg
	app.log = log
	if cfg.Metrics.Enabled {
		app.registry = prometheus.NewRegistry()
		app.metrics = metrics.New(cfg.Metrics.Namespace, app.registry)
	}
	return nil
}

// teardown выгружает метрики в textfile, если они включены
func teardown(cmd *cobra.Command, args []string) error {
	if app.registry == nil || app.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(app.cfg.Metrics.Textfile, app.registry); err != nil {
		app.log.Warn("failed to write metrics textfile", logger.Field{Key: "error", Value: err})
	}
	return nil
}

// configPath возвращает путь к конфигурации: флаг, переменная окружения, значение по умолчанию
func configPath() string {
	if rootConfigPath != "" {
		return rootConfigPath
	}
	if p := os.Getenv(constants.EnvConfigPath); p != "" {
		return p
	}
	return constants.DefaultConfigPath
}

// connect подключается к демону из конфигурации
func connect() (*jobqueue.JobQueue, error) {
	return jobqueue.Connect(app.cfg.Client.Endpoint,
		jobqueue.WithConfig(app.cfg),
		jobqueue.WithLogger(app.log),
		jobqueue.WithMetrics(app.metrics),
		jobqueue.WithClientName("jqctl/"+version.Version))
}

// withQueue выполняет fn на новом подключении. Команды только для чтения
// повторяются с переподключением после сетевых ошибок; команды с побочными
// эффектами выполняются ровно один раз.
func withQueue(ctx context.Context, readOnly bool, fn func(jq *jobqueue.JobQueue) error) error {
	attempt := func() error {
		jq, err := connect()
		if err != nil {
			return err
		}
		defer jq.Close()
		return fn(jq)
	}
	if !readOnly || rootRetries <= 1 {
		return attempt()
	}
	return retry.Do(ctx, retry.Config{MaxAttempts: rootRetries, Logger: app.log}, attempt)
}

// exitCode возвращает код завершения по виду ошибки
func exitCode(err error) int {
	switch errs.KindOf(err) {
	case errs.KindInvalidArgument, errs.KindInvalidMethod:
		return 2
	case errs.KindNetwork:
		return 3
	case errs.KindTimeout:
		return 4
	case errs.KindServer:
		return 5
	case errs.KindLicense:
		return 6
	default:
		return 1
	}
}
