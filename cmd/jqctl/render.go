package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/jobdef"
	"github.com/aatumaykin/jobqueue/internal/jobqueue"
	"github.com/aatumaykin/jobqueue/internal/options"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return errs.InvalidArgument("jqctl", "invalid --output %q (expected: text, json, yaml)", format)
}

// render выводит v в формате --output; для text вызывается text
func render(w io.Writer, v any, text func(w io.Writer)) error {
	switch rootOutput {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

// queueView - очередь для вывода
type queueView struct {
	ID         int64              `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Status     string             `json:"status" yaml:"status"`
	Priority   string             `json:"priority" yaml:"priority"`
	Inherited  bool               `json:"priority_inherited" yaml:"priority_inherited"`
	JobDefault *options.Effective `json:"job_defaults,omitempty" yaml:"job_defaults,omitempty"`
}

func newQueueView(q *jobqueue.Queue) queueView {
	v := queueView{ID: q.ID(), Name: q.Name(), Status: q.Status().String()}
	if p, err := q.Priority(); err == nil {
		v.Priority = p.String()
	}
	_, set := q.Definition().Priority()
	v.Inherited = !set
	if eff, err := q.EffectiveOptions(nil); err == nil {
		v.JobDefault = &eff
	}
	return v
}

func (v queueView) text(w io.Writer) {
	fmt.Fprintf(w, "Queue:    %s (id %d)\n", v.Name, v.ID)
	fmt.Fprintf(w, "Status:   %s\n", v.Status)
	priority := v.Priority
	if v.Inherited {
		priority += " (inherited)"
	}
	fmt.Fprintf(w, "Priority: %s\n", priority)
	if d := v.JobDefault; d != nil {
		fmt.Fprintf(w, "Job defaults: priority=%s timeout=%ds retries=%d retry_wait=%ds persist_output=%s validate_ssl=%t\n",
			d.Priority, d.Timeout, d.AllowedRetries, d.RetryWaitTime, d.PersistOutput, d.ValidateSSL)
	}
}

// jobView - задание для вывода
type jobView struct {
	ID         int64      `json:"id" yaml:"id"`
	Queue      string     `json:"queue" yaml:"queue"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	Kind       string     `json:"kind" yaml:"kind"`
	Target     string     `json:"target" yaml:"target"`
	Schedule   string     `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Status     string     `json:"status" yaml:"status"`
	RetryCount int        `json:"retry_count" yaml:"retry_count"`
	Created    time.Time  `json:"creation_time" yaml:"creation_time"`
	Scheduled  *time.Time `json:"scheduled_time,omitempty" yaml:"scheduled_time,omitempty"`
	Completed  *time.Time `json:"completion_time,omitempty" yaml:"completion_time,omitempty"`
	Output     *string    `json:"output,omitempty" yaml:"output,omitempty"`
}

func newJobView(j *jobqueue.Job) jobView {
	v := jobView{
		ID:         j.ID(),
		Queue:      j.QueueName(),
		Status:     j.Status().String(),
		RetryCount: j.RetryCount(),
		Created:    j.CreationTime(),
	}
	if def := j.Definition(); def != nil {
		v.Kind = string(def.Kind())
		v.Name, _ = def.Name()
		switch d := def.(type) {
		case *jobdef.CLIJob:
			v.Target = d.Command()
		case *jobdef.HTTPJob:
			v.Target = string(d.Method()) + " " + d.RequestURL()
		}
	}
	if s := j.Schedule(); s != nil {
		v.Schedule = s.String()
	}
	if t, ok := j.ScheduledTime(); ok {
		v.Scheduled = &t
	}
	if t, ok := j.CompletionTime(); ok {
		v.Completed = &t
	}
	if out, ok := j.Output(); ok {
		v.Output = &out
	}
	return v
}

func (v jobView) line(w io.Writer) {
	name := v.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(w, "%6d  %-20s %-10s %-4s %s\n", v.ID, name, v.Status, v.Kind, v.Target)
}

func (v jobView) text(w io.Writer) {
	fmt.Fprintf(w, "Job:        %d (queue '%s')\n", v.ID, v.Queue)
	if v.Name != "" {
		fmt.Fprintf(w, "Name:       %s\n", v.Name)
	}
	fmt.Fprintf(w, "Kind:       %s\n", v.Kind)
	fmt.Fprintf(w, "Target:     %s\n", v.Target)
	if v.Schedule != "" {
		fmt.Fprintf(w, "Schedule:   %s\n", v.Schedule)
	}
	fmt.Fprintf(w, "Status:     %s\n", v.Status)
	fmt.Fprintf(w, "Retries:    %d\n", v.RetryCount)
	fmt.Fprintf(w, "Created:    %s\n", v.Created.Format(time.RFC3339))
	if v.Scheduled != nil {
		fmt.Fprintf(w, "Scheduled:  %s\n", v.Scheduled.Format(time.RFC3339))
	}
	if v.Completed != nil {
		fmt.Fprintf(w, "Completed:  %s\n", v.Completed.Format(time.RFC3339))
	}
	if v.Output != nil {
		fmt.Fprintf(w, "Output:\n%s\n", *v.Output)
	}
}
