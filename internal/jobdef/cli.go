package jobdef

import (
	"maps"

	"github.com/aatumaykin/jobqueue/internal/cmdline"
	"github.com/aatumaykin/jobqueue/internal/errs"
)

// CLIJob - задание, запускающее командную строку.
// Окружение по умолчанию пустое: PATH не наследуется и задаётся явно.
type CLIJob struct {
	base
	command string
	args    []string
	env     map[string]string
}

// NewCLIJob разбирает command сразу; неверная командная строка даёт InvalidArgument
func NewCLIJob(command string) (*CLIJob, error) {
	args, err := cmdline.Tokenize(command)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "NewCLIJob", err)
	}
	if len(args) == 0 {
		return nil, errs.InvalidArgument("NewCLIJob", "command is empty")
	}
	return &CLIJob{
		command: command,
		args:    args,
		env:     make(map[string]string),
	}, nil
}

func (j *CLIJob) Kind() Kind { return KindCLI }

// SetName задаёт имя задания
func (j *CLIJob) SetName(name string) error {
	return j.setName("CLIJob.SetName", name)
}

// Command возвращает исходную командную строку
func (j *CLIJob) Command() string { return j.command }

// Args возвращает копию разобранных токенов; первый токен - исполняемый файл
func (j *CLIJob) Args() []string {
	out := make([]string, len(j.args))
	copy(out, j.args)
	return out
}

// SetEnv добавляет переменную окружения; повторная запись перезаписывает значение
func (j *CLIJob) SetEnv(name, value string) error {
	if err := j.checkMutable("CLIJob.SetEnv"); err != nil {
		return err
	}
	if name == "" {
		return errs.InvalidArgument("CLIJob.SetEnv", "environment variable name is empty")
	}
	j.env[name] = value
	return nil
}

// Env возвращает копию окружения
func (j *CLIJob) Env() map[string]string {
	return maps.Clone(j.env)
}
