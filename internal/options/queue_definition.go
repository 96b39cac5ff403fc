package options

import (
	"github.com/aatumaykin/jobqueue/internal/errs"
)

// QueueDefinition - приоритет очереди и параметры заданий по умолчанию.
// Незаданные значения берутся из настроек демона.
type QueueDefinition struct {
	priority *Priority
	defaults *JobOptions
}

// QueueOption задаёт одно поле QueueDefinition при создании
type QueueOption func(*QueueDefinition) error

// WithQueuePriority задаёт приоритет очереди
func WithQueuePriority(p Priority) QueueOption {
	return func(d *QueueDefinition) error { return d.SetPriority(p) }
}

// WithDefaultJobOptions задаёт параметры заданий по умолчанию
func WithDefaultJobOptions(o *JobOptions) QueueOption {
	return func(d *QueueDefinition) error {
		d.SetDefaultJobOptions(o)
		return nil
	}
}

// NewQueueDefinition создаёт определение очереди
func NewQueueDefinition(opts ...QueueOption) (*QueueDefinition, error) {
	d := &QueueDefinition{}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Priority возвращает приоритет очереди и признак того, что он задан
func (d *QueueDefinition) Priority() (Priority, bool) {
	if d == nil || d.priority == nil {
		return 0, false
	}
	return *d.priority, true
}

// DefaultJobOptions возвращает копию параметров заданий по умолчанию или nil
func (d *QueueDefinition) DefaultJobOptions() *JobOptions {
	if d == nil {
		return nil
	}
	return d.defaults.Clone()
}

// SetPriority задаёт приоритет очереди
func (d *QueueDefinition) SetPriority(p Priority) error {
	if !p.Valid() {
		return errs.InvalidArgument("QueueDefinition.SetPriority", "invalid priority value %d", int(p))
	}
	d.priority = &p
	return nil
}

// SetDefaultJobOptions задаёт параметры заданий по умолчанию (сохраняется копия)
func (d *QueueDefinition) SetDefaultJobOptions(o *JobOptions) {
	d.defaults = o.Clone()
}

// Clone возвращает независимую копию
func (d *QueueDefinition) Clone() *QueueDefinition {
	if d == nil {
		return nil
	}
	c := &QueueDefinition{defaults: d.defaults.Clone()}
	if d.priority != nil {
		v := *d.priority
		c.priority = &v
	}
	return c
}
