package daemonsim

import (
	"cmp"
	"slices"
	"time"

	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/status"
)

// queue - очередь демона
type queue struct {
	id        int64
	name      string
	status    status.Queue
	def       *options.QueueDefinition
	pending   *status.Queue
	pendingAt time.Time
}

// statusAt возвращает статус очереди, применяя отложенный переход, если его время пришло
func (q *queue) statusAt(now time.Time) status.Queue {
	if q.pending != nil && !now.Before(q.pendingAt) {
		q.status = *q.pending
		q.pending = nil
	}
	return q.status
}

// request запоминает целевой статус; при delay == 0 он применяется сразу
func (q *queue) request(target status.Queue, now time.Time, delay time.Duration) {
	if delay <= 0 {
		q.status = target
		q.pending = nil
		return
	}
	if q.statusAt(now) == target {
		q.pending = nil
		return
	}
	q.pending = &target
	q.pendingAt = now.Add(delay)
}

func (q *queue) wire(now time.Time) protocol.Queue {
	return protocol.Queue{
		ID:         q.id,
		Name:       q.name,
		Status:     int(q.statusAt(now)),
		Definition: protocol.EncodeQueueDefinition(q.def),
	}
}

// job - задание демона; priority - разрешённый приоритет для порядка выдачи
type job struct {
	wire     protocol.Job
	priority options.Priority
}

// state - очереди и задания симулятора
type state struct {
	queues      map[string]*queue
	jobs        map[int64]*job
	nextQueueID int64
	nextJobID   int64
}

func newState(defaultQueue string) *state {
	st := &state{
		queues: make(map[string]*queue),
		jobs:   make(map[int64]*job),
	}
	def, _ := options.NewQueueDefinition()
	st.addQueue(defaultQueue, def)
	return st
}

func (st *state) addQueue(name string, def *options.QueueDefinition) *queue {
	st.nextQueueID++
	q := &queue{id: st.nextQueueID, name: name, status: status.QueueRunning, def: def}
	st.queues[name] = q
	return q
}

// deleteQueue удаляет очередь вместе с её заданиями
func (st *state) deleteQueue(q *queue) {
	q.status = status.QueueDeleted
	q.pending = nil
	delete(st.queues, q.name)
	for id, j := range st.jobs {
		if j.wire.Queue == q.name {
			delete(st.jobs, id)
		}
	}
}

// sortedQueues возвращает очереди по возрастанию id
func (st *state) sortedQueues() []*queue {
	out := make([]*queue, 0, len(st.queues))
	for _, q := range st.queues {
		out = append(out, q)
	}
	slices.SortFunc(out, func(a, b *queue) int { return cmp.Compare(a.id, b.id) })
	return out
}

// queueJobs возвращает задания очереди в порядке выдачи:
// сначала более высокий приоритет, при равенстве - более раннее задание
func (st *state) queueJobs(queueName, jobName string) []*job {
	var out []*job
	for _, j := range st.jobs {
		if j.wire.Queue != queueName {
			continue
		}
		if jobName != "" && j.wire.Definition.Name != jobName {
			continue
		}
		out = append(out, j)
	}
	slices.SortFunc(out, func(a, b *job) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.wire.ID, b.wire.ID)
	})
	return out
}

// cancel применяет правила отмены: незавершённое задание удаляется,
// выполняющееся получает неизвестный результат, завершённое не меняется
func (j *job) cancel(now time.Time) {
	st := status.Job(j.wire.Status)
	switch {
	case st.Terminal():
		return
	case st == status.JobRunning:
		j.wire.Status = int(status.JobUnknown)
	default:
		j.setStatus(status.JobRemoved, now)
	}
}

func (j *job) setStatus(st status.Job, now time.Time) {
	j.wire.Status = int(st)
	if st.Terminal() {
		t := now
		j.wire.CompletionTime = &t
	} else {
		j.wire.CompletionTime = nil
	}
}
