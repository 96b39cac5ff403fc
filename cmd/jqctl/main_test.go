package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/jobqueue/internal/daemonsim"
	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/schedule"
	"github.com/aatumaykin/jobqueue/internal/status"
)

func TestCommandStructure(t *testing.T) {
	require.NotNil(t, rootCmd)

	found := make(map[string]*cobra.Command)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = cmd
	}
	for _, name := range []string{"version", "config", "queue", "job", "sim"} {
		assert.Contains(t, found, name, "command %q not registered", name)
	}

	sub := func(parent string) []string {
		var names []string
		for _, c := range found[parent].Commands() {
			names = append(names, c.Name())
		}
		return names
	}
	assert.ElementsMatch(t, []string{"validate", "show"}, sub("config"))
	assert.ElementsMatch(t, []string{"list", "get", "add", "modify", "delete", "suspend", "resume"}, sub("queue"))
	assert.ElementsMatch(t, []string{"schedule-cli", "schedule-http", "list", "get", "cancel", "wait"}, sub("job"))
	assert.ElementsMatch(t, []string{"stop"}, sub("sim"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", errs.InvalidArgument("op", "bad"), 2},
		{"invalid method", errs.InvalidMethod("op", "bad"), 2},
		{"network", errs.Network("op", errors.New("reset")), 3},
		{"timeout", errs.Timeout("op", "late"), 4},
		{"server", errs.Server("op", "boom"), 5},
		{"license", errs.License("op", "expired"), 6},
		{"plain error", errors.New("plain"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestValidOutput(t *testing.T) {
	for _, f := range []string{outputText, outputJSON, outputYAML} {
		assert.NoError(t, validOutput(f))
	}
	err := validOutput("xml")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestSplitPair(t *testing.T) {
	k, v, err := splitPair("env", "PATH=/usr/bin:/bin")
	require.NoError(t, err)
	assert.Equal(t, "PATH", k)
	assert.Equal(t, "/usr/bin:/bin", v)

	k, v, err = splitPair("query", "empty=")
	require.NoError(t, err)
	assert.Equal(t, "empty", k)
	assert.Empty(t, v)

	for _, bad := range []string{"novalue", "=x"} {
		_, _, err := splitPair("env", bad)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, bad)
	}
}

func TestJobOptionFlags(t *testing.T) {
	newCmd := func() (*cobra.Command, *jobOptionFlags) {
		f := &jobOptionFlags{}
		cmd := &cobra.Command{Use: "test"}
		f.register(cmd)
		return cmd, f
	}

	t.Run("nothing set", func(t *testing.T) {
		cmd, f := newCmd()
		require.NoError(t, cmd.ParseFlags(nil))
		opts, err := f.build(cmd)
		require.NoError(t, err)
		assert.Nil(t, opts)
	})

	t.Run("explicit values", func(t *testing.T) {
		cmd, f := newCmd()
		require.NoError(t, cmd.ParseFlags([]string{
			"--job-priority", "high", "--timeout", "30", "--persist-output", "yes", "--validate-ssl=false",
		}))
		opts, err := f.build(cmd)
		require.NoError(t, err)
		require.NotNil(t, opts)

		p, ok := opts.Priority()
		assert.True(t, ok)
		assert.Equal(t, options.PriorityHigh, p)
		timeout, ok := opts.Timeout()
		assert.True(t, ok)
		assert.Equal(t, 30, timeout)
		persist, ok := opts.PersistOutput()
		assert.True(t, ok)
		assert.Equal(t, options.PersistOutputYes, persist)
		ssl, ok := opts.ValidateSSL()
		assert.True(t, ok)
		assert.False(t, ssl)
		_, ok = opts.AllowedRetries()
		assert.False(t, ok, "unset flags are inherited")
	})

	t.Run("invalid priority", func(t *testing.T) {
		cmd, f := newCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--job-priority", "asap"}))
		_, err := f.build(cmd)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("negative timeout", func(t *testing.T) {
		cmd, f := newCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--timeout=-1"}))
		_, err := f.build(cmd)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestJobSchedule(t *testing.T) {
	defer func() { jobCron, jobAt = "", "" }()

	jobCron, jobAt = "", ""
	s, err := jobSchedule()
	require.NoError(t, err)
	assert.Nil(t, s)

	jobCron = "*/5 * * * *"
	s, err = jobSchedule()
	require.NoError(t, err)
	assert.Equal(t, schedule.KindRecurring, s.Kind())

	jobCron, jobAt = "", "2030-01-02T03:04:05Z"
	s, err = jobSchedule()
	require.NoError(t, err)
	assert.Equal(t, schedule.KindTime, s.Kind())

	jobAt = "tomorrow"
	_, err = jobSchedule()
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	jobCron, jobAt = "* * * * *", "2030-01-02T03:04:05Z"
	_, err = jobSchedule()
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestScheduleCLIArgs(t *testing.T) {
	assert.NoError(t, jobScheduleCLICmd.Args(jobScheduleCLICmd, []string{`echo "a b"`}))
	assert.Error(t, jobScheduleCLICmd.Args(jobScheduleCLICmd, []string{"echo", "a b"}),
		"split arguments would lose their quoting")
	assert.Error(t, jobScheduleCLICmd.Args(jobScheduleCLICmd, nil))
}

func TestPIDFile(t *testing.T) {
	defer func() { simPIDFile = "" }()
	home := t.TempDir()
	t.Setenv("HOME", home)

	simPIDFile = ""
	path, err := pidFile()
	require.NoError(t, err)
	assert.Equal(t, daemonsim.PIDPath(filepath.Join(home, ".jobqueue")), path)

	simPIDFile = "/run/jqsim.pid"
	path, err = pidFile()
	require.NoError(t, err)
	assert.Equal(t, "/run/jqsim.pid", path)
}

func TestParseJobID(t *testing.T) {
	id, err := parseJobID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseJobID(bad)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, bad)
	}
}

// execute запускает jqctl с аргументами и возвращает stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootOutput = outputText
	jobQueueName = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestEndToEnd(t *testing.T) {
	srv := daemonsim.New()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.Serve(context.Background(), l)
	t.Cleanup(srv.Stop)

	base := []string{
		"--endpoint", "tcp://" + srv.Addr(),
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
	}
	run := func(args ...string) (string, error) {
		return execute(t, append(append([]string{}, base...), args...)...)
	}

	out, err := run("queue", "add", "reports")
	require.NoError(t, err)
	assert.Contains(t, out, "Queue 'reports' added")

	out, err = run("-o", "json", "queue", "list")
	require.NoError(t, err)
	var queues []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &queues))
	require.Len(t, queues, 2)
	assert.Equal(t, "default", queues[0].Name)
	assert.Equal(t, "reports", queues[1].Name)

	out, err = run("job", "schedule-cli", "--queue", "reports", `/bin/echo "hello world"`)
	require.NoError(t, err)
	assert.Contains(t, out, "scheduled in queue 'reports'")

	out, err = run("-o", "json", "job", "list", "--queue", "reports")
	require.NoError(t, err)
	var jobs []jobView
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, `/bin/echo "hello world"`, jobs[0].Target)
	assert.Equal(t, status.JobScheduled.String(), jobs[0].Status)

	out, err = run("job", "cancel", "--queue", "reports", "1")
	require.NoError(t, err)
	assert.Contains(t, out, status.JobRemoved.String())

	_, err = run("queue", "delete", "reports")
	require.Error(t, err, "running queue cannot be deleted")
	assert.Equal(t, 5, exitCode(err))

	_, err = run("queue", "get", "nope")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestEndToEnd_DaemonDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = execute(t,
		"--endpoint", "tcp://"+addr,
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
		"--retries", "1",
		"queue", "list")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}
