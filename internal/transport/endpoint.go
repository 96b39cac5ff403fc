// Package transport carries protocol messages between the client and the
// daemon: endpoint parsing, dialing and listening, and newline-delimited JSON
// framing with per-message deadlines.
package transport

import (
	"strconv"

	"github.com/wasilibs/go-re2"

	"github.com/aatumaykin/jobqueue/internal/errs"
)

// Схемы адресов демона
const (
	SchemeTCP  = "tcp"
	SchemeUnix = "unix"
	SchemeIPC  = "ipc" // синоним unix
)

var (
	tcpEndpoint  = re2.MustCompile(`^tcp://(\[[0-9A-Fa-f:.]+\]|[A-Za-z0-9][A-Za-z0-9.\-_]*|\*):([0-9]{1,5})$`)
	unixEndpoint = re2.MustCompile(`^(unix|ipc)://(/[^\x00]*[^/\x00])$`)
)

// Endpoint - разобранный адрес демона
type Endpoint struct {
	Scheme  string // tcp, unix или ipc
	Network string // сеть для net.Dial: tcp или unix
	Address string // host:port или путь к сокету
	raw     string
}

func (e Endpoint) String() string { return e.raw }

// ParseEndpoint разбирает строку вида tcp://host:port, unix:///path или ipc:///path.
// Хост * означает все интерфейсы и допустим только для Listen.
func ParseEndpoint(s string) (Endpoint, error) {
	if m := tcpEndpoint.FindStringSubmatch(s); m != nil {
		port, err := strconv.Atoi(m[2])
		if err != nil || port < 1 || port > 65535 {
			return Endpoint{}, errs.InvalidArgument("transport.ParseEndpoint", "invalid port in endpoint %q", s)
		}
		host := m[1]
		if host == "*" {
			host = ""
		}
		return Endpoint{
			Scheme:  SchemeTCP,
			Network: "tcp",
			Address: host + ":" + m[2],
			raw:     s,
		}, nil
	}
	if m := unixEndpoint.FindStringSubmatch(s); m != nil {
		return Endpoint{
			Scheme:  m[1],
			Network: "unix",
			Address: m[2],
			raw:     s,
		}, nil
	}
	return Endpoint{}, errs.InvalidArgument("transport.ParseEndpoint",
		"invalid endpoint %q (expected tcp://host:port, unix:///path or ipc:///path)", s)
}
