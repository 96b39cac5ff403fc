// Package cmdline splits a shell-style command line into argv tokens.
//
// Rules, applied in a single left-to-right pass:
//   - outside quotes a backslash followed by `\`, space, `"` or `'` is dropped
//     and the next character is taken literally; any other backslash is kept;
//   - everything between single quotes is literal, backslashes included;
//   - between double quotes only `\"` and `\\` are collapsed, every other
//     backslash is kept;
//   - unquoted whitespace separates tokens, runs of whitespace collapse;
//   - quoted spans concatenate with adjacent unquoted text (`a"b c"d` is `ab cd`).
//
// An unterminated quote fails the whole input; no partial result is returned.
package cmdline

import (
	"strings"

	"github.com/aatumaykin/jobqueue/internal/errs"
)

type state int

const (
	stateUnquoted state = iota
	stateSingle
	stateDouble
)

// Tokenize разбирает командную строку на токены.
// Пустая строка или строка из пробелов даёт пустой срез без ошибки.
func Tokenize(command string) ([]string, error) {
	tokens := make([]string, 0, 4)
	var cur strings.Builder
	inToken := false
	st := stateUnquoted
	openedAt := 0

	flush := func() {
		tokens = append(tokens, cur.String())
		cur.Reset()
		inToken = false
	}

	for i := 0; i < len(command); i++ {
		c := command[i]

		switch st {
		case stateSingle:
			if c == '\'' {
				st = stateUnquoted
				continue
			}
			cur.WriteByte(c)

		case stateDouble:
			if c == '\\' && i+1 < len(command) && (command[i+1] == '"' || command[i+1] == '\\') {
				cur.WriteByte(command[i+1])
				i++
				continue
			}
			if c == '"' {
				st = stateUnquoted
				continue
			}
			cur.WriteByte(c)

		default:
			switch {
			case c == '\\':
				inToken = true
				if i+1 < len(command) && isEscapable(command[i+1]) {
					cur.WriteByte(command[i+1])
					i++
					continue
				}
				// Обратный слэш без специального значения сохраняется
				cur.WriteByte(c)
			case c == '\'':
				st = stateSingle
				openedAt = i
				inToken = true
			case c == '"':
				st = stateDouble
				openedAt = i
				inToken = true
			case isSpace(c):
				if inToken {
					flush()
				}
			default:
				cur.WriteByte(c)
				inToken = true
			}
		}
	}

	switch st {
	case stateSingle:
		return nil, errs.InvalidArgument("cmdline.Tokenize", "unterminated single quote at offset %d", openedAt)
	case stateDouble:
		return nil, errs.InvalidArgument("cmdline.Tokenize", "unterminated double quote at offset %d", openedAt)
	}

	if inToken {
		flush()
	}

	return tokens, nil
}

// isEscapable сообщает, снимает ли обратный слэш вне кавычек специальное значение символа
func isEscapable(c byte) bool {
	return c == '\\' || c == ' ' || c == '"' || c == '\''
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
