// Package status defines job and queue status codes. The integer values are
// part of the daemon protocol and must not change.
package status

import "fmt"

// Job - статус задания
type Job int

const (
	// JobCreated - создано локально, ещё не запланировано
	JobCreated Job = 0
	// JobScheduled - запланировано
	JobScheduled Job = 1
	// JobWaitingOnParent - ждёт завершения родительского задания
	JobWaitingOnParent Job = 2
	// JobRunning - выполняется
	JobRunning Job = 3
	// JobSuspended - приостановлено
	JobSuspended Job = 4
	// JobTimeout - превышен таймаут
	JobTimeout Job = 5
	// JobFailedNoWorker - нет доступного обработчика
	JobFailedNoWorker Job = 6
	// JobFailedWorkerError - ошибка обработчика
	JobFailedWorkerError Job = 7
	// JobRemoved - отменено и удалено
	JobRemoved Job = 8
	// JobCompleted - успешно завершено
	JobCompleted Job = 9
	// JobUnknown - результат неизвестен после прерывания
	JobUnknown Job = 10
)

var jobNames = map[Job]string{
	JobCreated:           "created",
	JobScheduled:         "scheduled",
	JobWaitingOnParent:   "waiting_on_parent",
	JobRunning:           "running",
	JobSuspended:         "suspended",
	JobTimeout:           "timeout",
	JobFailedNoWorker:    "failed_no_worker",
	JobFailedWorkerError: "failed_worker_error",
	JobRemoved:           "removed",
	JobCompleted:         "completed",
	JobUnknown:           "unknown",
}

// Valid сообщает, известен ли код статуса
func (s Job) Valid() bool {
	_, ok := jobNames[s]
	return ok
}

// Terminal сообщает, что задание больше не изменит статус
func (s Job) Terminal() bool {
	switch s {
	case JobCompleted, JobTimeout, JobFailedNoWorker, JobFailedWorkerError, JobRemoved:
		return true
	}
	return false
}

// QuasiTerminal - статус без автоматических переходов, который демон может
// позже уточнить
func (s Job) QuasiTerminal() bool {
	return s == JobUnknown
}

func (s Job) String() string {
	if name, ok := jobNames[s]; ok {
		return name
	}
	return fmt.Sprintf("job_status(%d)", int(s))
}

// Queue - статус очереди
type Queue int

const (
	QueueRunning   Queue = 0
	QueueSuspended Queue = 1
	QueueDeleted   Queue = 2
)

var queueNames = map[Queue]string{
	QueueRunning:   "running",
	QueueSuspended: "suspended",
	QueueDeleted:   "deleted",
}

// Valid сообщает, известен ли код статуса
func (s Queue) Valid() bool {
	_, ok := queueNames[s]
	return ok
}

func (s Queue) String() string {
	if name, ok := queueNames[s]; ok {
		return name
	}
	return fmt.Sprintf("queue_status(%d)", int(s))
}
