package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// MaxMessageSize - предельный размер одного сообщения
const MaxMessageSize = 16 << 20

// ErrClosed возвращается при работе с закрытым соединением
var ErrClosed = errors.New("transport: connection closed")

// Error - ошибка транспорта с операцией и адресом
type Error struct {
	Op   string // dial, listen, read, write, close
	Addr string
	Err  error
}

func (e *Error) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("transport %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config - таймауты соединения; ноль отключает соответствующий таймаут
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Conn - соединение, передающее JSON сообщения по одному на строку.
// Не безопасно для конкурентного использования.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	cfg     Config
	addr    string
	closed  bool
}

// Dial подключается к демону
func Dial(ep Endpoint, cfg Config) (*Conn, error) {
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	c, err := d.Dial(ep.Network, ep.Address)
	if err != nil {
		return nil, &Error{Op: "dial", Addr: ep.String(), Err: err}
	}
	return NewConn(c, cfg), nil
}

// NewConn оборачивает установленное соединение
func NewConn(c net.Conn, cfg Config) *Conn {
	scanner := bufio.NewScanner(c)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	return &Conn{
		conn:    c,
		scanner: scanner,
		cfg:     cfg,
		addr:    c.RemoteAddr().String(),
	}
}

// WriteMessage кодирует v и отправляет одной строкой
func (c *Conn) WriteMessage(v any) error {
	if c.closed {
		return &Error{Op: "write", Addr: c.addr, Err: ErrClosed}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return &Error{Op: "write", Addr: c.addr, Err: fmt.Errorf("failed to encode message: %w", err)}
	}
	data = append(data, '\n')

	if c.cfg.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return &Error{Op: "write", Addr: c.addr, Err: err}
		}
	}
	if _, err := c.conn.Write(data); err != nil {
		return &Error{Op: "write", Addr: c.addr, Err: err}
	}
	return nil
}

// ReadMessage читает одну строку и декодирует её в v
func (c *Conn) ReadMessage(v any) error {
	if c.closed {
		return &Error{Op: "read", Addr: c.addr, Err: ErrClosed}
	}
	if c.cfg.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return &Error{Op: "read", Addr: c.addr, Err: err}
		}
	}
	if !c.scanner.Scan() {
		err := c.scanner.Err()
		if err == nil {
			err = ErrClosed
		}
		return &Error{Op: "read", Addr: c.addr, Err: err}
	}
	if err := json.Unmarshal(c.scanner.Bytes(), v); err != nil {
		return &Error{Op: "read", Addr: c.addr, Err: fmt.Errorf("failed to decode message: %w", err)}
	}
	return nil
}

// Close закрывает соединение; повторный вызов ничего не делает
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return &Error{Op: "close", Addr: c.addr, Err: err}
	}
	return nil
}

// Listen открывает слушающий сокет. Для unix сокета каталог создаётся,
// а оставшийся от прошлого запуска файл удаляется.
func Listen(ep Endpoint) (net.Listener, error) {
	if ep.Network == "unix" {
		if err := os.MkdirAll(filepath.Dir(ep.Address), 0755); err != nil {
			return nil, &Error{Op: "listen", Addr: ep.String(), Err: err}
		}
		if err := os.Remove(ep.Address); err != nil && !os.IsNotExist(err) {
			return nil, &Error{Op: "listen", Addr: ep.String(), Err: err}
		}
	}
	l, err := net.Listen(ep.Network, ep.Address)
	if err != nil {
		return nil, &Error{Op: "listen", Addr: ep.String(), Err: err}
	}
	return l, nil
}
