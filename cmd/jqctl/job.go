package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/jobqueue/internal/constants"
	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/jobdef"
	"github.com/aatumaykin/jobqueue/internal/jobqueue"
	"github.com/aatumaykin/jobqueue/internal/schedule"
)

var (
	jobQueueName   string
	jobName        string
	jobCron        string
	jobAt          string
	jobEnv         []string
	jobMethod      string
	jobContentType string
	jobHeaders     []string
	jobQuery       []string
	jobParams      []string
	jobRawBody     string
	jobWaitTimeout time.Duration
	jobOptions     jobOptionFlags
)

// jobCmd represents the job command
var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage jobs",
	Long: `Schedule CLI and HTTP jobs, list and inspect jobs of a queue, cancel them
and wait for them to finish. --queue selects the queue (default: the daemon
default queue).`,
}

// jobScheduleCLICmd represents the job schedule-cli command
var jobScheduleCLICmd = &cobra.Command{
	Use:   "schedule-cli <command line>",
	Short: "Schedule a command line job",
	Long: `Schedule a job that runs a command line on the daemon host. The job
environment is empty unless --env is given; PATH is not inherited. The command
line is one argument and is tokenized with its own quoting rules.

Examples:
  jqctl job schedule-cli "/usr/bin/php /srv/app/cron.php --force"
  jqctl job schedule-cli --cron "*/5 * * * *" --env PATH=/usr/bin "backup.sh"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := jobdef.NewCLIJob(args[0])
		if err != nil {
			return err
		}
		for _, kv := range jobEnv {
			name, value, err := splitPair("env", kv)
			if err != nil {
				return err
			}
			if err := def.SetEnv(name, value); err != nil {
				return err
			}
		}
		return scheduleJob(cmd, def)
	},
}

// jobScheduleHTTPCmd represents the job schedule-http command
var jobScheduleHTTPCmd = &cobra.Command{
	Use:   "schedule-http <url>",
	Short: "Schedule an HTTP request job",
	Long: `Schedule a job that performs an HTTP request. Body parameters are encoded
according to --content-type; --raw-body sends the given text as is.

Examples:
  jqctl job schedule-http https://example.com/hook
  jqctl job schedule-http --method POST --param id=42 --header "X-Token=abc" https://example.com/api`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentType, err := jobdef.ParseContentType(jobContentType)
		if err != nil {
			return errs.Wrap(errs.KindInvalidArgument, "jqctl", err)
		}
		def, err := jobdef.NewHTTPJob(args[0], jobdef.Method(strings.ToUpper(jobMethod)), contentType)
		if err != nil {
			return err
		}
		for _, kv := range jobHeaders {
			name, value, err := splitPair("header", kv)
			if err != nil {
				return err
			}
			if err := def.AddHeader(name, value); err != nil {
				return err
			}
		}
		for _, kv := range jobQuery {
			key, value, err := splitPair("query", kv)
			if err != nil {
				return err
			}
			if err := def.AddQueryArg(key, value); err != nil {
				return err
			}
		}
		for _, kv := range jobParams {
			key, value, err := splitPair("param", kv)
			if err != nil {
				return err
			}
			if err := def.AddBodyParam(key, value); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("raw-body") {
			if err := def.SetRawBody(jobRawBody); err != nil {
				return err
			}
		}
		return scheduleJob(cmd, def)
	},
}

// jobListCmd represents the job list command
var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs of a queue in dispatch order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var views []jobView
		err := withQueue(cmd.Context(), true, func(jq *jobqueue.JobQueue) error {
			q, err := lookupQueue(jq, []string{jobQueueName})
			if err != nil {
				return err
			}
			var jobs []*jobqueue.Job
			if cmd.Flags().Changed("name") {
				jobs, err = q.JobsByName(jobName)
			} else {
				jobs, err = q.Jobs()
			}
			if err != nil {
				return err
			}
			views = make([]jobView, 0, len(jobs))
			for _, j := range jobs {
				views = append(views, newJobView(j))
			}
			return nil
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), views, func(w io.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, constants.MsgJobsNotFound)
				return
			}
			for _, v := range views {
				v.line(w)
			}
			fmt.Fprintf(w, constants.MsgJobsTotal, len(views))
		})
	},
}

// jobGetCmd represents the job get command
var jobGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		var view jobView
		err = withQueue(cmd.Context(), true, func(jq *jobqueue.JobQueue) error {
			q, err := lookupQueue(jq, []string{jobQueueName})
			if err != nil {
				return err
			}
			j, err := q.Job(id)
			if err != nil {
				return err
			}
			view = newJobView(j)
			return nil
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), view, view.text)
	},
}

// jobCancelCmd represents the job cancel command
var jobCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a job",
	Long: `Cancel a job. A job that has not finished is removed; a running job may end
in the unknown status; a finished job keeps its status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		return withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
			q, err := lookupQueue(jq, []string{jobQueueName})
			if err != nil {
				return err
			}
			st, err := q.CancelJob(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), constants.MsgJobCancelled, id, st)
			return nil
		})
	},
}

// jobWaitCmd represents the job wait command
var jobWaitCmd = &cobra.Command{
	Use:   "wait <id>",
	Short: "Wait until a job finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseJobID(args[0])
		if err != nil {
			return err
		}
		var view jobView
		err = withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
			q, err := lookupQueue(jq, []string{jobQueueName})
			if err != nil {
				return err
			}
			j, err := q.Job(id)
			if err != nil {
				return err
			}
			if err := j.Wait(jobWaitTimeout); err != nil {
				return err
			}
			view = newJobView(j)
			return nil
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), view, view.text)
	},
}

// scheduleJob отправляет def в очередь --queue с расписанием и параметрами из флагов
func scheduleJob(cmd *cobra.Command, def jobdef.Definition) error {
	if jobName != "" {
		if err := def.SetName(jobName); err != nil {
			return err
		}
	}
	sched, err := jobSchedule()
	if err != nil {
		return err
	}
	opts, err := jobOptions.build(cmd)
	if err != nil {
		return err
	}

	var view jobView
	err = withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
		q, err := lookupQueue(jq, []string{jobQueueName})
		if err != nil {
			return err
		}
		j, err := q.ScheduleJob(def, sched, opts)
		if err != nil {
			return err
		}
		view = newJobView(j)
		return nil
	})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), view, func(w io.Writer) {
		fmt.Fprintf(w, constants.MsgJobScheduled, view.ID, view.Queue, view.Status)
	})
}

// jobSchedule возвращает расписание из --cron или --at; nil - запуск сразу
func jobSchedule() (schedule.Schedule, error) {
	switch {
	case jobCron != "" && jobAt != "":
		return nil, errs.InvalidArgument("jqctl", "--cron and --at are mutually exclusive")
	case jobCron != "":
		return schedule.NewRecurring(jobCron)
	case jobAt != "":
		at, err := time.Parse(time.RFC3339, jobAt)
		if err != nil {
			return nil, errs.InvalidArgument("jqctl", "invalid --at %q (expected RFC 3339 time): %v", jobAt, err)
		}
		return schedule.NewTime(at)
	}
	return nil, nil
}

func parseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.InvalidArgument("jqctl", "invalid job id %q", s)
	}
	return id, nil
}

func init() {
	jobCmd.PersistentFlags().StringVarP(&jobQueueName, "queue", "q", "", "queue name (default: the daemon default queue)")

	for _, c := range []*cobra.Command{jobScheduleCLICmd, jobScheduleHTTPCmd} {
		c.Flags().StringVarP(&jobName, "name", "n", "", "job name")
		c.Flags().StringVar(&jobCron, "cron", "", "recurring schedule as a crontab expression")
		c.Flags().StringVar(&jobAt, "at", "", "run once at the given RFC 3339 time")
		jobOptions.register(c)
	}
	jobScheduleCLICmd.Flags().StringArrayVar(&jobEnv, "env", nil, "environment variable NAME=VALUE (repeatable)")

	jobScheduleHTTPCmd.Flags().StringVarP(&jobMethod, "method", "X", string(jobdef.MethodPost), "HTTP method: GET, POST, PUT")
	jobScheduleHTTPCmd.Flags().StringVar(&jobContentType, "content-type", "json", "body format: json, url-encoded, zend-server")
	jobScheduleHTTPCmd.Flags().StringArrayVarP(&jobHeaders, "header", "H", nil, "request header NAME=VALUE (repeatable)")
	jobScheduleHTTPCmd.Flags().StringArrayVar(&jobQuery, "query", nil, "query argument KEY=VALUE (repeatable)")
	jobScheduleHTTPCmd.Flags().StringArrayVar(&jobParams, "param", nil, "body parameter KEY=VALUE (repeatable)")
	jobScheduleHTTPCmd.Flags().StringVar(&jobRawBody, "raw-body", "", "raw request body, replaces --param")

	jobListCmd.Flags().StringVarP(&jobName, "name", "n", "", "only jobs with this name")
	jobWaitCmd.Flags().DurationVar(&jobWaitTimeout, "timeout", time.Minute, "maximum time to wait")

	jobCmd.AddCommand(jobScheduleCLICmd)
	jobCmd.AddCommand(jobScheduleHTTPCmd)
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobGetCmd)
	jobCmd.AddCommand(jobCancelCmd)
	jobCmd.AddCommand(jobWaitCmd)
}
