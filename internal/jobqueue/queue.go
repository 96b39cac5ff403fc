package jobqueue

import (
	"errors"
	"time"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/jobdef"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/retry"
	"github.com/aatumaykin/jobqueue/internal/schedule"
	"github.com/aatumaykin/jobqueue/internal/status"
)

// Queue - handle очереди. Нулевое значение не связано с подключением:
// все его удалённые операции возвращают NotInitialized.
type Queue struct {
	jq     *JobQueue
	id     int64
	name   string
	status status.Queue
	def    *options.QueueDefinition
}

// newQueue строит handle из ответа демона
func (jq *JobQueue) newQueue(op string, wire protocol.Queue) (*Queue, error) {
	q := &Queue{jq: jq}
	if err := q.apply(op, wire); err != nil {
		return nil, err
	}
	return q, nil
}

// apply обновляет handle; при ошибке handle не меняется
func (q *Queue) apply(op string, wire protocol.Queue) error {
	st := status.Queue(wire.Status)
	if !st.Valid() {
		return errs.Server(op, "daemon reported unknown queue status %d", wire.Status)
	}
	def, err := wire.Definition.Decode()
	if err != nil {
		return errs.Server(op, "daemon reported invalid queue definition: %v", err)
	}
	q.id = wire.ID
	q.name = wire.Name
	q.status = st
	q.def = def
	return nil
}

func (q *Queue) bound(op protocol.Op) error {
	if q == nil || q.jq == nil || q.jq.session == nil {
		return errs.NotInitialized(string(op))
	}
	return nil
}

// ID возвращает идентификатор очереди
func (q *Queue) ID() int64 { return q.id }

// Name возвращает имя очереди
func (q *Queue) Name() string { return q.name }

// Status возвращает статус на момент последнего обращения к демону
func (q *Queue) Status() status.Queue { return q.status }

// Definition возвращает копию определения очереди
func (q *Queue) Definition() *options.QueueDefinition { return q.def.Clone() }

// Refresh перечитывает состояние очереди у демона
func (q *Queue) Refresh() error {
	if err := q.bound(protocol.OpGetQueue); err != nil {
		return err
	}
	var wire protocol.Queue
	if err := q.jq.call(protocol.OpGetQueue, protocol.QueueRef{Name: q.name}, &wire); err != nil {
		return err
	}
	return q.apply(string(protocol.OpGetQueue), wire)
}

// Suspend приостанавливает очередь. timeout == 0 только отправляет запрос;
// timeout > 0 ждёт статуса SUSPENDED и возвращает Timeout, если не дождался.
func (q *Queue) Suspend(timeout time.Duration) error {
	return q.transition(protocol.OpSuspendQueue, status.QueueSuspended, timeout)
}

// Resume возобновляет очередь; timeout как у Suspend
func (q *Queue) Resume(timeout time.Duration) error {
	return q.transition(protocol.OpResumeQueue, status.QueueRunning, timeout)
}

func (q *Queue) transition(op protocol.Op, target status.Queue, timeout time.Duration) error {
	if err := q.bound(op); err != nil {
		return err
	}
	if timeout < 0 {
		return errs.InvalidArgument(string(op), "timeout must not be negative, got %s", timeout)
	}

	var wire protocol.Queue
	if err := q.jq.call(op, protocol.QueueRef{Name: q.name}, &wire); err != nil {
		return err
	}
	if err := q.apply(string(op), wire); err != nil {
		return err
	}
	if timeout == 0 {
		return nil
	}

	err := retry.Poll(timeout, q.jq.cfg.Client.PollInterval(), func() (bool, error) {
		if q.status == target {
			return true, nil
		}
		if err := q.Refresh(); err != nil {
			return false, err
		}
		return q.status == target, nil
	})
	if errors.Is(err, retry.ErrDeadline) {
		return errs.Timeout(string(op), "queue %q did not become %s within %s, last status %s", q.name, target, timeout, q.status)
	}
	if err == nil {
		q.jq.log.Debug("queue transition confirmed",
			logger.Field{Key: "queue", Value: q.name},
			logger.Field{Key: "status", Value: q.status.String()})
	}
	return err
}

// Jobs возвращает все задания очереди в порядке, заданном демоном
func (q *Queue) Jobs() ([]*Job, error) {
	return q.jobs("")
}

// JobsByName возвращает задания с указанным именем
func (q *Queue) JobsByName(name string) ([]*Job, error) {
	if name == "" {
		return nil, errs.InvalidArgument(string(protocol.OpGetJobs), "job name must not be empty")
	}
	return q.jobs(name)
}

func (q *Queue) jobs(name string) ([]*Job, error) {
	op := protocol.OpGetJobs
	if err := q.bound(op); err != nil {
		return nil, err
	}
	var list protocol.JobList
	if err := q.jq.call(op, protocol.JobsQuery{Queue: q.name, Name: name}, &list); err != nil {
		return nil, err
	}
	out := make([]*Job, 0, len(list.Jobs))
	for _, wire := range list.Jobs {
		j, err := q.jq.newJob(string(op), wire)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// Job возвращает задание очереди по id; неизвестный id - InvalidArgument
func (q *Queue) Job(id int64) (*Job, error) {
	op := protocol.OpGetJob
	if err := q.bound(op); err != nil {
		return nil, err
	}
	var wire protocol.Job
	if err := q.jq.call(op, protocol.JobRef{Queue: q.name, ID: id}, &wire); err != nil {
		return nil, err
	}
	return q.jq.newJob(string(op), wire)
}

// ScheduleJob отправляет задание в очередь. sched == nil означает немедленный
// запуск, opts == nil - наследование всех параметров. После успешной отправки
// def замораживается.
func (q *Queue) ScheduleJob(def jobdef.Definition, sched schedule.Schedule, opts *options.JobOptions) (*Job, error) {
	op := protocol.OpScheduleJob
	if err := q.bound(op); err != nil {
		return nil, err
	}
	if def == nil {
		return nil, errs.InvalidArgument(string(op), "job definition is required")
	}
	wireDef, err := protocol.EncodeDefinition(def)
	if err != nil {
		return nil, errs.InvalidArgument(string(op), "%v", err)
	}

	req := protocol.ScheduleJob{
		Queue:      q.name,
		Definition: wireDef,
		Schedule:   protocol.EncodeSchedule(sched),
		Options:    protocol.EncodeOptions(opts),
	}
	var wire protocol.Job
	if err := q.jq.call(op, req, &wire); err != nil {
		return nil, err
	}
	def.Freeze()

	j, err := q.jq.newJob(string(op), wire)
	if err != nil {
		return nil, err
	}
	q.jq.log.Info("job scheduled",
		logger.Field{Key: "queue", Value: q.name},
		logger.Field{Key: "job_id", Value: j.ID()},
		logger.Field{Key: "status", Value: j.Status().String()})
	return j, nil
}

// CancelJob отменяет задание и возвращает его статус после отмены.
// Незавершённое задание удаляется (REMOVED), выполняющееся может получить
// UNKNOWN, завершённое не меняется. Локальные handle-ы не обновляются.
func (q *Queue) CancelJob(id int64) (status.Job, error) {
	op := protocol.OpCancelJob
	if err := q.bound(op); err != nil {
		return 0, err
	}
	var wire protocol.Job
	if err := q.jq.call(op, protocol.JobRef{Queue: q.name, ID: id}, &wire); err != nil {
		return 0, err
	}
	st := status.Job(wire.Status)
	if !st.Valid() {
		return 0, errs.Server(string(op), "daemon reported unknown job status %d", wire.Status)
	}
	return st, nil
}

// CancelJobHandle отменяет задание по handle; handle чужой очереди - InvalidArgument
func (q *Queue) CancelJobHandle(j *Job) (status.Job, error) {
	op := string(protocol.OpCancelJob)
	if err := q.bound(protocol.OpCancelJob); err != nil {
		return 0, err
	}
	if j == nil || j.id == 0 {
		return 0, errs.InvalidArgument(op, "job handle is not initialized")
	}
	if j.queueName != q.name {
		return 0, errs.InvalidArgument(op, "job %d belongs to queue %q, not %q", j.id, j.queueName, q.name)
	}
	return q.CancelJob(j.id)
}

// EffectiveOptions разрешает параметры задания с учётом значений очереди и системы
func (q *Queue) EffectiveOptions(opts *options.JobOptions) (options.Effective, error) {
	if err := q.bound(protocol.OpGetQueue); err != nil {
		return options.Effective{}, err
	}
	return options.Resolve(opts, q.def, q.jq.defaults), nil
}

// Priority возвращает разрешённый приоритет очереди
func (q *Queue) Priority() (options.Priority, error) {
	if err := q.bound(protocol.OpGetQueue); err != nil {
		return 0, err
	}
	return options.ResolveQueuePriority(q.def, q.jq.defaults.Priority), nil
}
