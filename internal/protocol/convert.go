package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/aatumaykin/jobqueue/internal/jobdef"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/schedule"
)

// EncodeOptions переводит JobOptions в форму протокола.
// Пустые параметры дают nil.
func EncodeOptions(o *options.JobOptions) *Options {
	if o.IsEmpty() {
		return nil
	}
	out := &Options{}
	if v, ok := o.Priority(); ok {
		out.Priority = intPtr(int(v))
	}
	if v, ok := o.Timeout(); ok {
		out.Timeout = intPtr(v)
	}
	if v, ok := o.AllowedRetries(); ok {
		out.AllowedRetries = intPtr(v)
	}
	if v, ok := o.RetryWaitTime(); ok {
		out.RetryWaitTime = intPtr(v)
	}
	if v, ok := o.PersistOutput(); ok {
		out.PersistOutput = intPtr(int(v))
	}
	if v, ok := o.ValidateSSL(); ok {
		out.ValidateSSL = &v
	}
	return out
}

// Decode проверяет поля и строит JobOptions. nil даёт пустые параметры.
func (o *Options) Decode() (*options.JobOptions, error) {
	out, _ := options.New()
	if o == nil {
		return out, nil
	}
	if o.Priority != nil {
		if err := out.SetPriority(options.Priority(*o.Priority)); err != nil {
			return nil, err
		}
	}
	if o.Timeout != nil {
		if err := out.SetTimeout(*o.Timeout); err != nil {
			return nil, err
		}
	}
	if o.AllowedRetries != nil {
		if err := out.SetAllowedRetries(*o.AllowedRetries); err != nil {
			return nil, err
		}
	}
	if o.RetryWaitTime != nil {
		if err := out.SetRetryWaitTime(*o.RetryWaitTime); err != nil {
			return nil, err
		}
	}
	if o.PersistOutput != nil {
		if err := out.SetPersistOutput(options.PersistOutput(*o.PersistOutput)); err != nil {
			return nil, err
		}
	}
	if o.ValidateSSL != nil {
		out.SetValidateSSL(*o.ValidateSSL)
	}
	return out, nil
}

// EncodeQueueDefinition переводит QueueDefinition в форму протокола
func EncodeQueueDefinition(d *options.QueueDefinition) QueueDefinition {
	var out QueueDefinition
	if d == nil {
		return out
	}
	if p, ok := d.Priority(); ok {
		out.Priority = intPtr(int(p))
	}
	out.Defaults = EncodeOptions(d.DefaultJobOptions())
	return out
}

// Decode проверяет поля и строит QueueDefinition
func (d QueueDefinition) Decode() (*options.QueueDefinition, error) {
	var opts []options.QueueOption
	if d.Defaults != nil {
		defaults, err := d.Defaults.Decode()
		if err != nil {
			return nil, err
		}
		opts = append(opts, options.WithDefaultJobOptions(defaults))
	}
	if d.Priority != nil {
		opts = append(opts, options.WithQueuePriority(options.Priority(*d.Priority)))
	}
	return options.NewQueueDefinition(opts...)
}

// EncodeDefinition переводит определение задания в форму протокола.
// Тело GET запроса не передаётся.
func EncodeDefinition(def jobdef.Definition) (Definition, error) {
	name, _ := def.Name()
	switch d := def.(type) {
	case *jobdef.CLIJob:
		return Definition{
			Kind: string(jobdef.KindCLI),
			Name: name,
			CLI:  &CLIDefinition{Command: d.Command(), Env: d.Env()},
		}, nil
	case *jobdef.HTTPJob:
		h := &HTTPDefinition{
			URL:         d.URL(),
			Method:      string(d.Method()),
			ContentType: int(d.ContentType()),
			Headers:     d.Headers(),
			Query:       d.QueryArgs(),
		}
		if d.Method() != jobdef.MethodGet {
			if raw, ok := d.RawBody(); ok {
				h.RawBody = &raw
			} else if params := d.BodyParams(); len(params) > 0 {
				h.Params = params
			}
		}
		return Definition{Kind: string(jobdef.KindHTTP), Name: name, HTTP: h}, nil
	case nil:
		return Definition{}, fmt.Errorf("job definition is nil")
	default:
		return Definition{}, fmt.Errorf("unsupported job definition %T", def)
	}
}

// Decode строит определение задания и замораживает его:
// определение с провода уже принято демоном.
func (d Definition) Decode() (jobdef.Definition, error) {
	var def jobdef.Definition
	switch jobdef.Kind(d.Kind) {
	case jobdef.KindCLI:
		if d.CLI == nil {
			return nil, fmt.Errorf("cli definition payload is missing")
		}
		job, err := decodeCLI(d.CLI)
		if err != nil {
			return nil, err
		}
		def = job
	case jobdef.KindHTTP:
		if d.HTTP == nil {
			return nil, fmt.Errorf("http definition payload is missing")
		}
		job, err := decodeHTTP(d.HTTP)
		if err != nil {
			return nil, err
		}
		def = job
	default:
		return nil, fmt.Errorf("unknown job definition kind %q", d.Kind)
	}
	if err := def.SetName(d.Name); err != nil {
		return nil, err
	}
	def.Freeze()
	return def, nil
}

func decodeCLI(d *CLIDefinition) (*jobdef.CLIJob, error) {
	job, err := jobdef.NewCLIJob(d.Command)
	if err != nil {
		return nil, err
	}
	for name, value := range d.Env {
		if err := job.SetEnv(name, value); err != nil {
			return nil, err
		}
	}
	return job, nil
}

func decodeHTTP(d *HTTPDefinition) (*jobdef.HTTPJob, error) {
	job, err := jobdef.NewHTTPJob(d.URL, jobdef.Method(d.Method), jobdef.ContentType(d.ContentType))
	if err != nil {
		return nil, err
	}
	for _, h := range d.Headers {
		if err := job.AddHeader(h.Name, h.Value); err != nil {
			return nil, err
		}
	}
	for k, v := range d.Query {
		if err := job.AddQueryArg(k, v); err != nil {
			return nil, err
		}
	}
	if d.RawBody != nil {
		if err := job.SetRawBody(*d.RawBody); err != nil {
			return nil, err
		}
	}
	for k, v := range d.Params {
		if err := job.AddBodyParam(k, paramValue(v)); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// paramValue приводит json.Number из payload к int64, если число целое.
// Дробные числа остаются json.Number и кодируются обратно без изменений.
func paramValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = paramValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = paramValue(item)
		}
		return out
	default:
		return v
	}
}

// EncodeSchedule переводит расписание в форму протокола; nil означает немедленный запуск
func EncodeSchedule(s schedule.Schedule) *Schedule {
	switch v := s.(type) {
	case schedule.RecurringSchedule:
		return &Schedule{Kind: string(schedule.KindRecurring), Crontab: v.Crontab()}
	case schedule.ScheduledTime:
		at := v.Time()
		return &Schedule{Kind: string(schedule.KindTime), Time: &at}
	}
	return nil
}

// Decode строит расписание; nil даёт nil
func (s *Schedule) Decode() (schedule.Schedule, error) {
	if s == nil {
		return nil, nil
	}
	switch schedule.Kind(s.Kind) {
	case schedule.KindRecurring:
		r, err := schedule.NewRecurring(s.Crontab)
		if err != nil {
			return nil, err
		}
		return r, nil
	case schedule.KindTime:
		if s.Time == nil {
			return nil, fmt.Errorf("scheduled time is missing")
		}
		t, err := schedule.NewTime(*s.Time)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown schedule kind %q", s.Kind)
}

func intPtr(v int) *int { return &v }
