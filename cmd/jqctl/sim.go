package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/jobqueue/internal/constants"
	"github.com/aatumaykin/jobqueue/internal/daemonsim"
	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/protocol"
)

var (
	simListen          string
	simPIDFile         string
	simTransitionDelay time.Duration
	simProtocolVersion string
	simLicense         string
)

// simCmd represents the sim command
var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run an in-memory job queue daemon",
	Long: `Run an in-memory daemon that speaks the client protocol. It keeps queues
and jobs in memory and never executes jobs. Useful for local development
and for trying jqctl without a real daemon.

The simulator listens on --listen (default: client.endpoint from the config)
until it receives SIGINT or SIGTERM. Its PID is written to --pid-file
(default: jqsim.pid in ~/.jobqueue), which "jqctl sim stop" reads.`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

// simStopCmd represents the sim stop command
var simStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running simulator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pidFile()
		if err != nil {
			return err
		}
		pid, err := daemonsim.ReadPID(path)
		if err != nil {
			return fmt.Errorf("failed to read PID file: %w", err)
		}
		if !daemonsim.IsRunning(pid) {
			_ = daemonsim.RemovePID(path)
			return fmt.Errorf("simulator (PID %d) is not running", pid)
		}
		process, err := os.FindProcess(pid)
		if err != nil {
			return err
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("failed to stop simulator (PID %d): %w", pid, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stop signal sent to simulator (PID %d)\n", pid)
		return nil
	},
}

func runSim(cmd *cobra.Command, args []string) error {
	log := app.log
	endpoint := simListen
	if endpoint == "" {
		endpoint = app.cfg.Client.Endpoint
	}

	opts := []daemonsim.Option{
		daemonsim.WithLogger(log),
		daemonsim.WithTransitionDelay(simTransitionDelay),
	}
	if defaults, err := app.cfg.Defaults.Effective(); err == nil {
		opts = append(opts, daemonsim.WithJobDefaults(defaults))
	} else {
		log.Warn("invalid [defaults], using simulator defaults", logger.Field{Key: "error", Value: err})
	}
	if simProtocolVersion != "" {
		opts = append(opts, daemonsim.WithProtocolVersion(simProtocolVersion))
	}
	if simLicense != "" {
		opts = append(opts, daemonsim.WithLicense(protocol.License{Status: simLicense}))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := daemonsim.New(opts...)
	if err := srv.Start(ctx, endpoint); err != nil {
		return err
	}
	defer srv.Stop()

	pidPath, err := pidFile()
	if err != nil {
		return err
	}
	if err := daemonsim.WritePID(pidPath, os.Getpid()); err != nil {
		return err
	}
	defer func() {
		if err := daemonsim.RemovePID(pidPath); err != nil {
			log.Warn("failed to remove PID file", logger.Field{Key: "error", Value: err})
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgSimListening, endpoint)

	<-ctx.Done()
	log.Info("⏳ Received shutdown signal, stopping simulator")
	return nil
}

// pidFile возвращает --pid-file или PID файл в каталоге состояния по умолчанию
func pidFile() (string, error) {
	if simPIDFile != "" {
		return simPIDFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.InvalidArgument("jqctl", "cannot resolve home directory, pass --pid-file: %v", err)
	}
	dir := filepath.Join(home, strings.TrimPrefix(constants.DefaultStateDir, "~/"))
	return daemonsim.PIDPath(dir), nil
}

func init() {
	simCmd.PersistentFlags().StringVar(&simPIDFile, "pid-file", "", "simulator PID file (default "+daemonsim.PIDPath(constants.DefaultStateDir)+")")
	simCmd.Flags().StringVarP(&simListen, "listen", "l", "", "endpoint to listen on (default: client.endpoint)")
	simCmd.Flags().DurationVar(&simTransitionDelay, "transition-delay", 0, "delay before suspend/resume take effect")
	simCmd.Flags().StringVar(&simProtocolVersion, "protocol-version", "", "protocol version reported to clients")
	simCmd.Flags().StringVar(&simLicense, "license", "", "license status reported to clients: valid, expired, invalid")

	simCmd.AddCommand(simStopCmd)
}
