package options

// Effective - полностью разрешённые параметры задания
type Effective struct {
	Priority       Priority      `json:"priority" yaml:"priority"`
	Timeout        int           `json:"timeout" yaml:"timeout"`
	AllowedRetries int           `json:"allowed_retries" yaml:"allowed_retries"`
	RetryWaitTime  int           `json:"retry_wait_time" yaml:"retry_wait_time"`
	PersistOutput  PersistOutput `json:"persist_output" yaml:"persist_output"`
	ValidateSSL    bool          `json:"validate_ssl" yaml:"validate_ssl"`
}

// Resolve разрешает параметры задания послойно: значение задания, затем
// значение по умолчанию очереди, затем системное значение. Побеждает первое
// заданное значение. job и queue могут быть nil.
func Resolve(job *JobOptions, queue *QueueDefinition, system Effective) Effective {
	var qd *JobOptions
	if queue != nil {
		qd = queue.defaults
	}

	out := system
	if v, ok := firstPriority(job, qd); ok {
		out.Priority = v
	}
	if v, ok := firstInt(job.Timeout, qd.Timeout); ok {
		out.Timeout = v
	}
	if v, ok := firstInt(job.AllowedRetries, qd.AllowedRetries); ok {
		out.AllowedRetries = v
	}
	if v, ok := firstInt(job.RetryWaitTime, qd.RetryWaitTime); ok {
		out.RetryWaitTime = v
	}
	if v, ok := job.PersistOutput(); ok {
		out.PersistOutput = v
	} else if v, ok := qd.PersistOutput(); ok {
		out.PersistOutput = v
	}
	if v, ok := job.ValidateSSL(); ok {
		out.ValidateSSL = v
	} else if v, ok := qd.ValidateSSL(); ok {
		out.ValidateSSL = v
	}
	return out
}

// ResolveQueuePriority возвращает приоритет очереди или системный приоритет
func ResolveQueuePriority(queue *QueueDefinition, system Priority) Priority {
	if p, ok := queue.Priority(); ok {
		return p
	}
	return system
}

func firstPriority(layers ...*JobOptions) (Priority, bool) {
	for _, l := range layers {
		if p, ok := l.Priority(); ok {
			return p, true
		}
	}
	return 0, false
}

func firstInt(getters ...func() (int, bool)) (int, bool) {
	for _, get := range getters {
		if v, ok := get(); ok {
			return v, true
		}
	}
	return 0, false
}
