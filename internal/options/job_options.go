package options

import (
	"github.com/aatumaykin/jobqueue/internal/errs"
)

// JobOptions - параметры задания или параметры по умолчанию для очереди.
// Незаданное поле наследует значение очереди, а поля очереди - значения демона.
type JobOptions struct {
	priority       *Priority
	timeout        *int
	allowedRetries *int
	retryWaitTime  *int
	persistOutput  *PersistOutput
	validateSSL    *bool
}

// Option задаёт одно поле JobOptions при создании
type Option func(*JobOptions) error

// WithPriority задаёт приоритет задания
func WithPriority(p Priority) Option {
	return func(o *JobOptions) error { return o.SetPriority(p) }
}

// WithTimeout задаёт таймаут задания в секундах
func WithTimeout(seconds int) Option {
	return func(o *JobOptions) error { return o.SetTimeout(seconds) }
}

// WithAllowedRetries задаёт число допустимых повторов
func WithAllowedRetries(retries int) Option {
	return func(o *JobOptions) error { return o.SetAllowedRetries(retries) }
}

// WithRetryWaitTime задаёт паузу между повторами в секундах
func WithRetryWaitTime(seconds int) Option {
	return func(o *JobOptions) error { return o.SetRetryWaitTime(seconds) }
}

// WithPersistOutput задаёт политику сохранения вывода
func WithPersistOutput(p PersistOutput) Option {
	return func(o *JobOptions) error { return o.SetPersistOutput(p) }
}

// WithValidateSSL включает или выключает проверку SSL для HTTP заданий
func WithValidateSSL(validate bool) Option {
	return func(o *JobOptions) error {
		o.SetValidateSSL(validate)
		return nil
	}
}

// New создаёт JobOptions. При ошибке любой опции объект не возвращается.
func New(opts ...Option) (*JobOptions, error) {
	o := &JobOptions{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Priority возвращает приоритет и признак того, что он задан
func (o *JobOptions) Priority() (Priority, bool) {
	if o == nil || o.priority == nil {
		return 0, false
	}
	return *o.priority, true
}

// Timeout возвращает таймаут в секундах
func (o *JobOptions) Timeout() (int, bool) {
	if o == nil || o.timeout == nil {
		return 0, false
	}
	return *o.timeout, true
}

// AllowedRetries возвращает число допустимых повторов
func (o *JobOptions) AllowedRetries() (int, bool) {
	if o == nil || o.allowedRetries == nil {
		return 0, false
	}
	return *o.allowedRetries, true
}

// RetryWaitTime возвращает паузу между повторами в секундах
func (o *JobOptions) RetryWaitTime() (int, bool) {
	if o == nil || o.retryWaitTime == nil {
		return 0, false
	}
	return *o.retryWaitTime, true
}

// PersistOutput возвращает политику сохранения вывода
func (o *JobOptions) PersistOutput() (PersistOutput, bool) {
	if o == nil || o.persistOutput == nil {
		return 0, false
	}
	return *o.persistOutput, true
}

// ValidateSSL возвращает настройку проверки SSL
func (o *JobOptions) ValidateSSL() (bool, bool) {
	if o == nil || o.validateSSL == nil {
		return false, false
	}
	return *o.validateSSL, true
}

// SetPriority задаёт приоритет
func (o *JobOptions) SetPriority(p Priority) error {
	if !p.Valid() {
		return errs.InvalidArgument("JobOptions.SetPriority", "invalid priority value %d", int(p))
	}
	o.priority = &p
	return nil
}

// SetTimeout задаёт таймаут, допустимый диапазон (0, MaxSeconds]
func (o *JobOptions) SetTimeout(seconds int) error {
	if seconds <= 0 || seconds > MaxSeconds {
		return errs.InvalidArgument("JobOptions.SetTimeout", "timeout must be in range (0, %d], got %d", MaxSeconds, seconds)
	}
	o.timeout = &seconds
	return nil
}

// SetAllowedRetries задаёт число повторов, не меньше нуля
func (o *JobOptions) SetAllowedRetries(retries int) error {
	if retries < 0 {
		return errs.InvalidArgument("JobOptions.SetAllowedRetries", "allowed retries must be >= 0, got %d", retries)
	}
	o.allowedRetries = &retries
	return nil
}

// SetRetryWaitTime задаёт паузу между повторами, диапазон [0, MaxSeconds]
func (o *JobOptions) SetRetryWaitTime(seconds int) error {
	if seconds < 0 || seconds > MaxSeconds {
		return errs.InvalidArgument("JobOptions.SetRetryWaitTime", "retry wait time must be in range [0, %d], got %d", MaxSeconds, seconds)
	}
	o.retryWaitTime = &seconds
	return nil
}

// SetPersistOutput задаёт политику сохранения вывода
func (o *JobOptions) SetPersistOutput(p PersistOutput) error {
	if !p.Valid() {
		return errs.InvalidArgument("JobOptions.SetPersistOutput", "invalid persist output value %d", int(p))
	}
	o.persistOutput = &p
	return nil
}

// SetValidateSSL задаёт проверку SSL
func (o *JobOptions) SetValidateSSL(validate bool) {
	o.validateSSL = &validate
}

// Clone возвращает независимую копию
func (o *JobOptions) Clone() *JobOptions {
	if o == nil {
		return nil
	}
	c := &JobOptions{}
	if o.priority != nil {
		v := *o.priority
		c.priority = &v
	}
	if o.timeout != nil {
		v := *o.timeout
		c.timeout = &v
	}
	if o.allowedRetries != nil {
		v := *o.allowedRetries
		c.allowedRetries = &v
	}
	if o.retryWaitTime != nil {
		v := *o.retryWaitTime
		c.retryWaitTime = &v
	}
	if o.persistOutput != nil {
		v := *o.persistOutput
		c.persistOutput = &v
	}
	if o.validateSSL != nil {
		v := *o.validateSSL
		c.validateSSL = &v
	}
	return c
}

// IsEmpty сообщает, что ни одно поле не задано
func (o *JobOptions) IsEmpty() bool {
	return o == nil || (o.priority == nil && o.timeout == nil && o.allowedRetries == nil &&
		o.retryWaitTime == nil && o.persistOutput == nil && o.validateSSL == nil)
}
