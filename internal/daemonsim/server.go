// Package daemonsim is an in-memory job queue daemon speaking the client
// protocol. It is meant for tests and local development (jqctl sim).
//
// The simulator only models protocol-visible state: queues and their status,
// job status and cancellation rules, deletion cascade and dispatch order. It
// never executes jobs; job status changes only through cancellation or the
// test hooks (SetJobStatus, SetJobOutput).
package daemonsim

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/aatumaykin/jobqueue/internal/constants"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/transport"
	"github.com/aatumaykin/jobqueue/internal/version"
)

// Option настраивает симулятор
type Option func(*Server)

// WithLogger задаёт логгер
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProtocolVersion задаёт версию протокола, сообщаемую клиентам
func WithProtocolVersion(v string) Option {
	return func(s *Server) { s.protocolVersion = v }
}

// WithLicense задаёт состояние лицензии
func WithLicense(l protocol.License) Option {
	return func(s *Server) { s.license = l }
}

// WithJobDefaults задаёт системные параметры заданий
func WithJobDefaults(d options.Effective) Option {
	return func(s *Server) { s.defaults = d }
}

// WithTransitionDelay задерживает смену статуса очереди после suspend/resume
func WithTransitionDelay(d time.Duration) Option {
	return func(s *Server) { s.transitionDelay = d }
}

// Server - симулятор демона
type Server struct {
	log *logger.Logger

	mu              sync.Mutex
	protocolVersion string
	license         protocol.License
	defaults        options.Effective
	transitionDelay time.Duration
	defaultQueue    string
	state           *state
	now             func() time.Time

	clients []string

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	conns    map[net.Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

// New создаёт симулятор с очередью по умолчанию
func New(opts ...Option) *Server {
	s := &Server{
		log:             logger.Nop(),
		protocolVersion: version.ProtocolVersion,
		license:         protocol.License{Status: protocol.LicenseValid},
		defaults: options.Effective{
			Priority:       options.PriorityNormal,
			Timeout:        120,
			AllowedRetries: 0,
			RetryWaitTime:  1,
			PersistOutput:  options.PersistOutputError,
			ValidateSSL:    true,
		},
		defaultQueue: constants.DefaultQueueName,
		now:          time.Now,
		conns:        make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = newState(s.defaultQueue)
	return s
}

// Start слушает endpoint и обслуживает подключения в фоне
func (s *Server) Start(ctx context.Context, endpoint string) error {
	ep, err := transport.ParseEndpoint(endpoint)
	if err != nil {
		return err
	}
	l, err := transport.Listen(ep)
	if err != nil {
		return err
	}
	s.Serve(ctx, l)
	s.log.Info("simulator started", logger.Field{Key: "endpoint", Value: endpoint})
	return nil
}

// Serve обслуживает подключения к уже открытому listener в фоне
func (s *Server) Serve(ctx context.Context, l net.Listener) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = l
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptConnections()

	go func() {
		<-s.ctx.Done()
		_ = l.Close()
	}()
}

// Stop закрывает listener и все подключения и ждёт завершения обработчиков
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopping = true
	cancel := s.cancel
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Addr возвращает адрес listener или пустую строку до запуска
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// acceptConnections принимает новые подключения
func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("failed to accept connection", err)
			continue
		}

		// После Stop новые подключения не регистрируются: Stop их уже не закроет
		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

// handleConnection обслуживает одно подключение: запросы обрабатываются по очереди
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	c := transport.NewConn(conn, transport.Config{})
	sess := &session{}
	for {
		var req protocol.Request
		if err := c.ReadMessage(&req); err != nil {
			s.log.Debug("connection closed", logger.Field{Key: "reason", Value: err})
			return
		}

		resp := s.dispatch(sess, &req)
		if err := c.WriteMessage(resp); err != nil {
			s.log.Error("failed to send response", err, logger.Field{Key: "op", Value: req.Op})
			return
		}
	}
}

// session - состояние одного подключения
type session struct {
	greeted bool
}
