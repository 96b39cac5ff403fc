package protocol

import (
	"time"

	"github.com/aatumaykin/jobqueue/internal/jobdef"
	"github.com/aatumaykin/jobqueue/internal/options"
)

// LicenseValid - состояние действующей лицензии
const LicenseValid = "valid"

// Hello - первый запрос сессии
type Hello struct {
	ProtocolVersion string `json:"protocol_version"`
	Client          string `json:"client,omitempty"`
}

// License - состояние лицензии демона
type License struct {
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Welcome - ответ на Hello
type Welcome struct {
	ProtocolVersion string             `json:"protocol_version"`
	License         License            `json:"license"`
	JobDefaults     *options.Effective `json:"job_defaults,omitempty"`
}

// Options - параметры задания на проводе; nil означает "наследовать"
type Options struct {
	Priority       *int  `json:"priority,omitempty"`
	Timeout        *int  `json:"timeout,omitempty"`
	AllowedRetries *int  `json:"allowed_retries,omitempty"`
	RetryWaitTime  *int  `json:"retry_wait_time,omitempty"`
	PersistOutput  *int  `json:"persist_output,omitempty"`
	ValidateSSL    *bool `json:"validate_ssl,omitempty"`
}

// QueueDefinition - определение очереди на проводе
type QueueDefinition struct {
	Priority *int     `json:"priority,omitempty"`
	Defaults *Options `json:"defaults,omitempty"`
}

// Queue - очередь на проводе
type Queue struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Status     int             `json:"status"`
	Definition QueueDefinition `json:"definition"`
}

// QueueList - ответ get_queues
type QueueList struct {
	Queues []QueueSummary `json:"queues"`
}

// QueueSummary - идентичность очереди
type QueueSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// QueueRef - ссылка на очередь по имени
type QueueRef struct {
	Name string `json:"name"`
}

// HasQueueResult - ответ has_queue
type HasQueueResult struct {
	Exists bool `json:"exists"`
}

// AddQueue - запрос add_queue
type AddQueue struct {
	Name       string          `json:"name"`
	Definition QueueDefinition `json:"definition"`
}

// ModifyQueue - запрос modify_queue
type ModifyQueue struct {
	Name       string          `json:"name"`
	Definition QueueDefinition `json:"definition"`
}

// CLIDefinition - полезная нагрузка CLI задания
type CLIDefinition struct {
	Command string            `json:"command"`
	Env     map[string]string `json:"env,omitempty"`
}

// HTTPDefinition - полезная нагрузка HTTP задания
type HTTPDefinition struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	ContentType int               `json:"content_type"`
	Headers     []jobdef.Header   `json:"headers,omitempty"`
	Query       map[string]string `json:"query,omitempty"`
	Params      map[string]any    `json:"params,omitempty"`
	RawBody     *string           `json:"raw_body,omitempty"`
}

// Definition - определение задания на проводе, размеченное полем Kind
type Definition struct {
	Kind string          `json:"kind"`
	Name string          `json:"name,omitempty"`
	CLI  *CLIDefinition  `json:"cli,omitempty"`
	HTTP *HTTPDefinition `json:"http,omitempty"`
}

// Schedule - расписание на проводе, размеченное полем Kind
type Schedule struct {
	Kind    string     `json:"kind"`
	Crontab string     `json:"crontab,omitempty"`
	Time    *time.Time `json:"time,omitempty"`
}

// Job - задание на проводе
type Job struct {
	ID             int64      `json:"id"`
	Queue          string     `json:"queue"`
	Status         int        `json:"status"`
	Definition     Definition `json:"definition"`
	Schedule       *Schedule  `json:"schedule,omitempty"`
	Options        *Options   `json:"options,omitempty"`
	RetryCount     int        `json:"retry_count"`
	Output         *string    `json:"output,omitempty"`
	CreationTime   time.Time  `json:"creation_time"`
	ScheduledTime  *time.Time `json:"scheduled_time,omitempty"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
}

// JobsQuery - запрос get_jobs; пустое Name означает все задания очереди
type JobsQuery struct {
	Queue string `json:"queue"`
	Name  string `json:"name,omitempty"`
}

// JobList - ответ get_jobs в порядке выдачи демона
type JobList struct {
	Jobs []Job `json:"jobs"`
}

// JobRef - ссылка на задание
type JobRef struct {
	Queue string `json:"queue"`
	ID    int64  `json:"id"`
}

// ScheduleJob - запрос schedule_job
type ScheduleJob struct {
	Queue      string     `json:"queue"`
	Definition Definition `json:"definition"`
	Schedule   *Schedule  `json:"schedule,omitempty"`
	Options    *Options   `json:"options,omitempty"`
}
