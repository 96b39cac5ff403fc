// Package schedule provides the execution schedules a job can be submitted
// with: a recurring cron rule or a single point in time.
//
// The set of schedule kinds is closed. The crontab of a RecurringSchedule is
// only checked for syntax here; evaluating it is the daemon's job.
package schedule

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/jobqueue/internal/errs"
)

// Kind - вид расписания на проводе
type Kind string

const (
	KindRecurring Kind = "recurring"
	KindTime      Kind = "time"
)

// Schedule - расписание задания: RecurringSchedule или ScheduledTime
type Schedule interface {
	Kind() Kind
	String() string
	sealed()
}

// parser принимает стандартные 5 полей, необязательные секунды и дескрипторы (@daily и т.п.)
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// RecurringSchedule - повторяющееся расписание в формате crontab
type RecurringSchedule struct {
	crontab string
}

// NewRecurring проверяет синтаксис crontab и создаёт расписание
func NewRecurring(crontab string) (RecurringSchedule, error) {
	expr := strings.TrimSpace(crontab)
	if expr == "" {
		return RecurringSchedule{}, errs.InvalidArgument("schedule.NewRecurring", "crontab is empty")
	}
	if _, err := parser.Parse(expr); err != nil {
		return RecurringSchedule{}, errs.InvalidArgument("schedule.NewRecurring", "invalid crontab %q: %v", crontab, err)
	}
	return RecurringSchedule{crontab: expr}, nil
}

// Crontab возвращает выражение crontab
func (s RecurringSchedule) Crontab() string { return s.crontab }

// Next возвращает ближайший момент срабатывания после after.
// Для нулевого значения возвращает нулевое время.
func (s RecurringSchedule) Next(after time.Time) time.Time {
	sched, err := parser.Parse(s.crontab)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(after)
}

func (s RecurringSchedule) Kind() Kind     { return KindRecurring }
func (s RecurringSchedule) String() string { return s.crontab }
func (RecurringSchedule) sealed()          {}

// ScheduledTime - однократный запуск в указанный момент времени
type ScheduledTime struct {
	at time.Time
}

// NewTime создаёт расписание на момент at. Нулевое время недопустимо.
func NewTime(at time.Time) (ScheduledTime, error) {
	if at.IsZero() {
		return ScheduledTime{}, errs.InvalidArgument("schedule.NewTime", "time is not initialized")
	}
	return ScheduledTime{at: at}, nil
}

// Time возвращает момент запуска с исходной временной зоной
func (s ScheduledTime) Time() time.Time { return s.at }

func (s ScheduledTime) Kind() Kind     { return KindTime }
func (s ScheduledTime) String() string { return s.at.Format(time.RFC3339) }
func (ScheduledTime) sealed()          {}
