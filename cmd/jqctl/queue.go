package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/jobqueue/internal/constants"
	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/jobqueue"
	"github.com/aatumaykin/jobqueue/internal/options"
)

var (
	queuePriority    string
	queueWait        time.Duration
	queueJobDefaults jobOptionFlags
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage queues",
	Long:  `List, inspect, create, modify, suspend, resume and delete queues of the daemon.`,
}

// queueListCmd represents the queue list command
var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var queues []jobqueue.QueueInfo
		err := withQueue(cmd.Context(), true, func(jq *jobqueue.JobQueue) error {
			var err error
			queues, err = jq.Queues()
			return err
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), queues, func(w io.Writer) {
			if len(queues) == 0 {
				fmt.Fprintln(w, constants.MsgQueuesNotFound)
				return
			}
			for _, q := range queues {
				fmt.Fprintf(w, "%6d  %s\n", q.ID, q.Name)
			}
		})
	},
}

// queueGetCmd represents the queue get command
var queueGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Show a queue (the default queue when no name is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var view queueView
		err := withQueue(cmd.Context(), true, func(jq *jobqueue.JobQueue) error {
			q, err := lookupQueue(jq, args)
			if err != nil {
				return err
			}
			view = newQueueView(q)
			return nil
		})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), view, view.text)
	},
}

// queueAddCmd represents the queue add command
var queueAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := queueDefinition(cmd)
		if err != nil {
			return err
		}
		return withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
			q, err := jq.AddQueue(args[0], def)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), constants.MsgQueueAdded, q.Name(), q.ID())
			return nil
		})
	},
}

// queueModifyCmd represents the queue modify command
var queueModifyCmd = &cobra.Command{
	Use:   "modify <name>",
	Short: "Replace the definition of a queue",
	Long: `Replace the definition of a queue. Values not given on the command line
are inherited from the daemon defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := queueDefinition(cmd)
		if err != nil {
			return err
		}
		return withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
			q, err := jq.ModifyQueue(args[0], def)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), constants.MsgQueueModified, q.Name())
			return nil
		})
	},
}

// queueDeleteCmd represents the queue delete command
var queueDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a suspended queue and all its jobs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
			if err := jq.DeleteQueue(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), constants.MsgQueueDeleted, args[0])
			return nil
		})
	},
}

// queueSuspendCmd represents the queue suspend command
var queueSuspendCmd = &cobra.Command{
	Use:   "suspend [name]",
	Short: "Suspend a queue",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
			q, err := lookupQueue(jq, args)
			if err != nil {
				return err
			}
			if err := q.Suspend(queueWait); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), constants.MsgQueueSuspended, q.Name(), q.Status())
			return nil
		})
	},
}

// queueResumeCmd represents the queue resume command
var queueResumeCmd = &cobra.Command{
	Use:   "resume [name]",
	Short: "Resume a suspended queue",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueue(cmd.Context(), false, func(jq *jobqueue.JobQueue) error {
			q, err := lookupQueue(jq, args)
			if err != nil {
				return err
			}
			if err := q.Resume(queueWait); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), constants.MsgQueueResumed, q.Name(), q.Status())
			return nil
		})
	},
}

// lookupQueue возвращает очередь по имени из аргументов или очередь по умолчанию
func lookupQueue(jq *jobqueue.JobQueue, args []string) (*jobqueue.Queue, error) {
	if len(args) == 0 || args[0] == "" {
		return jq.DefaultQueue()
	}
	return jq.Queue(args[0])
}

// queueDefinition собирает определение очереди из флагов
func queueDefinition(cmd *cobra.Command) (*options.QueueDefinition, error) {
	var opts []options.QueueOption
	if cmd.Flags().Changed("priority") {
		p, err := options.ParsePriority(queuePriority)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "jqctl", err)
		}
		opts = append(opts, options.WithQueuePriority(p))
	}
	defaults, err := queueJobDefaults.build(cmd)
	if err != nil {
		return nil, err
	}
	if defaults != nil {
		opts = append(opts, options.WithDefaultJobOptions(defaults))
	}
	return options.NewQueueDefinition(opts...)
}

func init() {
	for _, c := range []*cobra.Command{queueAddCmd, queueModifyCmd} {
		c.Flags().StringVar(&queuePriority, "priority", "", "queue priority: low, normal, high, urgent")
		queueJobDefaults.register(c)
	}
	for _, c := range []*cobra.Command{queueSuspendCmd, queueResumeCmd} {
		c.Flags().DurationVar(&queueWait, "wait", 0, "wait up to this long for the queue status to change (0 returns at once)")
	}

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueGetCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueModifyCmd)
	queueCmd.AddCommand(queueDeleteCmd)
	queueCmd.AddCommand(queueSuspendCmd)
	queueCmd.AddCommand(queueResumeCmd)
}
