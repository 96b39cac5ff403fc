package jobqueue

import (
	"errors"
	"time"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/jobdef"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/retry"
	"github.com/aatumaykin/jobqueue/internal/schedule"
	"github.com/aatumaykin/jobqueue/internal/status"
)

// Job - handle задания: локальный снимок состояния демона.
// Определение, расписание и параметры неизменны; статус и прочие поля
// обновляются только через Refresh.
type Job struct {
	jq        *JobQueue
	queueName string
	id        int64

	def   jobdef.Definition
	sched schedule.Schedule
	opts  *options.JobOptions

	status         status.Job
	retryCount     int
	output         *string
	creationTime   time.Time
	scheduledTime  *time.Time
	completionTime *time.Time
}

// newJob строит handle из ответа демона
func (jq *JobQueue) newJob(op string, wire protocol.Job) (*Job, error) {
	j := &Job{jq: jq}
	if err := j.apply(op, wire); err != nil {
		return nil, err
	}
	return j, nil
}

// apply обновляет handle; при ошибке handle не меняется
func (j *Job) apply(op string, wire protocol.Job) error {
	st := status.Job(wire.Status)
	if !st.Valid() {
		return errs.Server(op, "daemon reported unknown job status %d", wire.Status)
	}
	def, err := wire.Definition.Decode()
	if err != nil {
		return errs.Server(op, "daemon reported invalid job definition: %v", err)
	}
	sched, err := wire.Schedule.Decode()
	if err != nil {
		return errs.Server(op, "daemon reported invalid schedule: %v", err)
	}
	opts, err := wire.Options.Decode()
	if err != nil {
		return errs.Server(op, "daemon reported invalid job options: %v", err)
	}

	j.queueName = wire.Queue
	j.id = wire.ID
	j.def = def
	j.sched = sched
	j.opts = opts
	j.status = st
	j.retryCount = wire.RetryCount
	j.output = wire.Output
	j.creationTime = wire.CreationTime
	j.scheduledTime = wire.ScheduledTime
	j.completionTime = wire.CompletionTime
	return nil
}

// ID возвращает идентификатор задания
func (j *Job) ID() int64 { return j.id }

// QueueName возвращает имя очереди задания
func (j *Job) QueueName() string { return j.queueName }

// Definition возвращает замороженное определение задания
func (j *Job) Definition() jobdef.Definition { return j.def }

// Schedule возвращает расписание; nil означает немедленный запуск
func (j *Job) Schedule() schedule.Schedule { return j.sched }

// Options возвращает копию параметров, заданных при отправке
func (j *Job) Options() *options.JobOptions { return j.opts.Clone() }

// Status возвращает статус на момент последнего обращения к демону
func (j *Job) Status() status.Job { return j.status }

// RetryCount возвращает число выполненных повторов
func (j *Job) RetryCount() int { return j.retryCount }

// Output возвращает сохранённый вывод задания
func (j *Job) Output() (string, bool) {
	if j.output == nil {
		return "", false
	}
	return *j.output, true
}

// CreationTime возвращает время создания задания
func (j *Job) CreationTime() time.Time { return j.creationTime }

// ScheduledTime возвращает время следующего запуска
func (j *Job) ScheduledTime() (time.Time, bool) {
	if j.scheduledTime == nil {
		return time.Time{}, false
	}
	return *j.scheduledTime, true
}

// CompletionTime возвращает время завершения; есть только у завершённых заданий
func (j *Job) CompletionTime() (time.Time, bool) {
	if j.completionTime == nil {
		return time.Time{}, false
	}
	return *j.completionTime, true
}

// Refresh перечитывает состояние задания у демона.
// Задание, которого демон не знает, даёт InvalidArgument.
func (j *Job) Refresh() error {
	op := protocol.OpGetJob
	if j == nil || j.jq == nil || j.jq.session == nil {
		return errs.NotInitialized(string(op))
	}
	var wire protocol.Job
	if err := j.jq.call(op, protocol.JobRef{Queue: j.queueName, ID: j.id}, &wire); err != nil {
		return err
	}
	return j.apply(string(op), wire)
}

// Wait обновляет задание, пока оно не перестанет меняться (завершённый
// статус или UNKNOWN), и возвращает Timeout, если этого не случилось за timeout
func (j *Job) Wait(timeout time.Duration) error {
	op := string(protocol.OpGetJob)
	if j == nil || j.jq == nil || j.jq.session == nil {
		return errs.NotInitialized(op)
	}
	if timeout <= 0 {
		return errs.InvalidArgument(op, "timeout must be positive, got %s", timeout)
	}
	settled := func() bool { return j.status.Terminal() || j.status.QuasiTerminal() }

	err := retry.Poll(timeout, j.jq.cfg.Client.PollInterval(), func() (bool, error) {
		if settled() {
			return true, nil
		}
		if err := j.Refresh(); err != nil {
			return false, err
		}
		return settled(), nil
	})
	if errors.Is(err, retry.ErrDeadline) {
		return errs.Timeout(op, "job %d is still %s after %s", j.id, j.status, timeout)
	}
	return err
}
