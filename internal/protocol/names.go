package protocol

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/aatumaykin/jobqueue/internal/constants"
	"github.com/aatumaykin/jobqueue/internal/errs"
)

// NormalizeQueueName приводит имя очереди к NFC и проверяет длину:
// от 1 до 256 символов. Клиент и демон сравнивают имена в этой форме.
func NormalizeQueueName(op, name string) (string, error) {
	n := norm.NFC.String(name)
	if n == "" {
		return "", errs.InvalidArgument(op, "queue name is empty")
	}
	if l := utf8.RuneCountInString(n); l > constants.MaxQueueNameLength {
		return "", errs.InvalidArgument(op, "queue name is too long (%d characters, maximum %d)", l, constants.MaxQueueNameLength)
	}
	return n, nil
}
