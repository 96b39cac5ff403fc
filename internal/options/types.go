// Package options holds the validated job and queue settings of the job queue
// client.
//
// Every setting is optional. An unset setting is not a zero value: it means
// "inherit", and is resolved at scheduling time by the layered lookup in
// Resolve (job value, then queue default, then system default).
package options

import (
	"fmt"
	"strings"
)

// MaxSeconds - верхняя граница для timeout и retryWaitTime, в секундах
const MaxSeconds = 2147483

// Priority - приоритет задания или очереди
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityNormal: "normal",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

// Valid сообщает, входит ли значение в закрытое множество приоритетов
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority разбирает имя приоритета без учёта регистра
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q (expected: low, normal, high, urgent)", s)
}

// PersistOutput - политика сохранения вывода задания
type PersistOutput int

const (
	PersistOutputNo    PersistOutput = 0
	PersistOutputYes   PersistOutput = 1
	PersistOutputError PersistOutput = 2
)

var persistNames = map[PersistOutput]string{
	PersistOutputNo:    "no",
	PersistOutputYes:   "yes",
	PersistOutputError: "error",
}

// Valid сообщает, входит ли значение в закрытое множество политик
func (p PersistOutput) Valid() bool {
	_, ok := persistNames[p]
	return ok
}

func (p PersistOutput) String() string {
	if name, ok := persistNames[p]; ok {
		return name
	}
	return fmt.Sprintf("persist_output(%d)", int(p))
}

// ParsePersistOutput разбирает имя политики без учёта регистра
func ParsePersistOutput(s string) (PersistOutput, error) {
	for p, name := range persistNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown persist output mode %q (expected: no, yes, error)", s)
}
