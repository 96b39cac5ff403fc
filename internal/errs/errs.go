// Package errs defines the error taxonomy shared by the job queue client.
//
// Every failure surfaced by the client is an *Error carrying a Kind. Kinds map
// 1:1 to the status codes of the daemon protocol, so a failure reported by the
// daemon and a failure detected locally are matched the same way:
//
//	if errors.Is(err, errs.ErrTimeout) {
//	    // refresh and check again
//	}
//
//	switch errs.KindOf(err) {
//	case errs.KindNetwork:
//	    // safe to retry reads
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку клиента
type Kind int

const (
	// KindOther - неклассифицированная ошибка
	KindOther Kind = iota
	// KindInvalidArgument - неверное значение аргумента (ошибка вызывающего кода)
	KindInvalidArgument
	// KindInvalidMethod - метод вызван вне допустимой последовательности
	KindInvalidMethod
	// KindNotInitialized - handle не связан с подключением к демону
	KindNotInitialized
	// KindNetwork - ошибка транспорта, подключения или разбора сообщения
	KindNetwork
	// KindTimeout - ожидание смены состояния не уложилось в таймаут
	KindTimeout
	// KindServer - демон вернул неожиданный ответ
	KindServer
	// KindLicense - лицензия отсутствует, неверна или истекла
	KindLicense
)

// Sentinel-значения для errors.Is
var (
	ErrOther           = errors.New("other error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidMethod   = errors.New("invalid method call")
	ErrNotInitialized  = errors.New("not initialized")
	ErrNetwork         = errors.New("network error")
	ErrTimeout         = errors.New("operation timed out")
	ErrServer          = errors.New("server error")
	ErrLicense         = errors.New("license error")
)

var kindInfo = map[Kind]struct {
	code     string
	sentinel error
}{
	KindOther:           {"other", ErrOther},
	KindInvalidArgument: {"invalid_argument", ErrInvalidArgument},
	KindInvalidMethod:   {"invalid_method", ErrInvalidMethod},
	KindNotInitialized:  {"not_initialized", ErrNotInitialized},
	KindNetwork:         {"network_error", ErrNetwork},
	KindTimeout:         {"timeout", ErrTimeout},
	KindServer:          {"server_error", ErrServer},
	KindLicense:         {"license_error", ErrLicense},
}

// Code возвращает код статуса протокола для вида ошибки
func (k Kind) Code() string {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return kindInfo[KindOther].code
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return k.Code()
}

// FromCode возвращает вид ошибки по коду статуса протокола.
// Неизвестные коды отображаются в KindOther.
func FromCode(code string) Kind {
	for k, info := range kindInfo {
		if info.code == code {
			return k
		}
	}
	return KindOther
}

// Error - ошибка клиента с видом, операцией и исходной причиной
type Error struct {
	Kind Kind   // Вид ошибки
	Op   string // Операция: "connect", "schedule_job", "HTTPJob.SetURL" и т.д.
	Err  error  // Исходная ошибка
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с sentinel-значением её вида
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	if info, ok := kindInfo[k]; ok {
		return info.sentinel
	}
	return ErrOther
}

// New создаёт ошибку заданного вида
func New(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap оборачивает err в ошибку заданного вида.
// Если err уже является *Error, вид сохраняется как есть.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// InvalidArgument создаёт ошибку KindInvalidArgument
func InvalidArgument(op string, format string, args ...any) *Error {
	return New(KindInvalidArgument, op, format, args...)
}

// InvalidMethod создаёт ошибку KindInvalidMethod
func InvalidMethod(op string, format string, args ...any) *Error {
	return New(KindInvalidMethod, op, format, args...)
}

// NotInitialized создаёт ошибку KindNotInitialized
func NotInitialized(op string) *Error {
	return &Error{Kind: KindNotInitialized, Op: op, Err: errors.New("handle is not bound to a job queue connection")}
}

// Network создаёт ошибку KindNetwork
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// Timeout создаёт ошибку KindTimeout
func Timeout(op string, format string, args ...any) *Error {
	return New(KindTimeout, op, format, args...)
}

// Server создаёт ошибку KindServer
func Server(op string, format string, args ...any) *Error {
	return New(KindServer, op, format, args...)
}

// License создаёт ошибку KindLicense
func License(op string, format string, args ...any) *Error {
	return New(KindLicense, op, format, args...)
}

// KindOf возвращает вид ошибки; для ошибок не из этого пакета - KindOther
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsRetryable сообщает, можно ли повторить операцию чтения после ошибки.
// Повторяются только сетевые ошибки: остальные виды требуют изменения входных
// данных или вмешательства на стороне демона.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == KindNetwork
}
