package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/options"
)

// jobOptionFlags - флаги параметров задания, общие для queue и job
type jobOptionFlags struct {
	priority      string
	timeout       int
	retries       int
	retryWait     int
	persistOutput string
	validateSSL   bool
}

func (f *jobOptionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.priority, "job-priority", "", "job priority: low, normal, high, urgent")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "job timeout in seconds")
	cmd.Flags().IntVar(&f.retries, "retries-allowed", 0, "number of allowed retries")
	cmd.Flags().IntVar(&f.retryWait, "retry-wait", 0, "seconds between retries")
	cmd.Flags().StringVar(&f.persistOutput, "persist-output", "", "persist output: no, yes, error")
	cmd.Flags().BoolVar(&f.validateSSL, "validate-ssl", true, "validate TLS certificates of HTTP jobs")
}

// build собирает параметры задания из явно заданных флагов; nil, если не задан ни один
func (f *jobOptionFlags) build(cmd *cobra.Command) (*options.JobOptions, error) {
	var opts []options.Option
	flags := cmd.Flags()

	if flags.Changed("job-priority") {
		p, err := options.ParsePriority(f.priority)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "jqctl", err)
		}
		opts = append(opts, options.WithPriority(p))
	}
	if flags.Changed("timeout") {
		opts = append(opts, options.WithTimeout(f.timeout))
	}
	if flags.Changed("retries-allowed") {
		opts = append(opts, options.WithAllowedRetries(f.retries))
	}
	if flags.Changed("retry-wait") {
		opts = append(opts, options.WithRetryWaitTime(f.retryWait))
	}
	if flags.Changed("persist-output") {
		p, err := options.ParsePersistOutput(f.persistOutput)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "jqctl", err)
		}
		opts = append(opts, options.WithPersistOutput(p))
	}
	if flags.Changed("validate-ssl") {
		opts = append(opts, options.WithValidateSSL(f.validateSSL))
	}

	if len(opts) == 0 {
		return nil, nil
	}
	return options.New(opts...)
}

// splitPair разбирает KEY=VALUE
func splitPair(flag, s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", errs.InvalidArgument("jqctl", "invalid --%s %q (expected KEY=VALUE)", flag, s)
	}
	return key, value, nil
}
