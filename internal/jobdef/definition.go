// Package jobdef provides job definitions: what a job runs.
//
// The set of definitions is closed: a *CLIJob runs a command line, an
// *HTTPJob performs an HTTP request. Definitions are mutable until they are
// submitted to the daemon; after that they are frozen and every setter fails
// with errs.ErrInvalidMethod.
package jobdef

import (
	"github.com/aatumaykin/jobqueue/internal/errs"
)

// Kind - вид определения задания на проводе
type Kind string

const (
	KindCLI  Kind = "cli"
	KindHTTP Kind = "http"
)

// Definition - определение задания: *CLIJob или *HTTPJob
type Definition interface {
	// Kind возвращает вид определения
	Kind() Kind
	// Name возвращает имя задания и признак того, что оно задано
	Name() (string, bool)
	// SetName задаёт имя; пустая строка снимает имя
	SetName(name string) error
	// Frozen сообщает, что определение уже принято демоном
	Frozen() bool
	// Freeze запрещает дальнейшие изменения
	Freeze()

	sealed()
}

// base - общие поля определений
type base struct {
	name   string
	frozen bool
}

func (b *base) Name() (string, bool) {
	return b.name, b.name != ""
}

func (b *base) Frozen() bool { return b.frozen }

func (b *base) Freeze() { b.frozen = true }

func (b *base) setName(op, name string) error {
	if err := b.checkMutable(op); err != nil {
		return err
	}
	b.name = name
	return nil
}

// checkMutable возвращает InvalidMethod для замороженного определения
func (b *base) checkMutable(op string) error {
	if b.frozen {
		return errs.InvalidMethod(op, "job definition is already submitted and cannot be modified")
	}
	return nil
}

func (*base) sealed() {}
