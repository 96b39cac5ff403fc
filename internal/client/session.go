// Package client implements the protocol session with the job queue daemon:
// connecting, the version and license handshake, and single request/response
// exchanges with failure classification.
//
// A Session carries one request at a time. It never reconnects or retries on
// its own: after a transport failure it stays disconnected and every further
// call fails with errs.ErrNetwork.
package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/metrics"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/transport"
	"github.com/aatumaykin/jobqueue/internal/version"
)

// ErrNotConnected - причина сетевой ошибки для закрытой или разорванной сессии
var ErrNotConnected = errors.New("not connected")

// ServerInfo - данные демона, полученные при рукопожатии
type ServerInfo struct {
	ProtocolVersion string
	License         protocol.License
	JobDefaults     *options.Effective
}

// Option настраивает сессию
type Option func(*Session)

// WithLogger задаёт логгер сессии
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics задаёт коллекторы метрик
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithClientName задаёт имя клиента, передаваемое демону при рукопожатии
func WithClientName(name string) Option {
	return func(s *Session) { s.clientName = name }
}

// Session - сессия с демоном
type Session struct {
	mu         sync.Mutex
	conn       *transport.Conn
	endpoint   transport.Endpoint
	log        *logger.Logger
	metrics    *metrics.Metrics
	clientName string
	server     ServerInfo
	now        func() time.Time
}

// Dial подключается к демону и выполняет рукопожатие.
// Неверный адрес даёт InvalidArgument, сбой подключения или несовместимая
// версия протокола - NetworkError, проблема с лицензией - LicenseError.
func Dial(endpoint string, cfg transport.Config, opts ...Option) (*Session, error) {
	s := &Session{
		log:        logger.Nop(),
		clientName: "jobqueue-go/" + version.Version,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ep, err := transport.ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	s.endpoint = ep
	s.log = s.log.With(logger.Field{Key: "endpoint", Value: ep.String()})

	conn, err := transport.Dial(ep, cfg)
	if err != nil {
		s.metrics.ObserveConnect(errs.KindNetwork.Code())
		return nil, errs.Network("connect", err)
	}
	s.conn = conn

	if err := s.handshake(); err != nil {
		s.metrics.ObserveConnect(errs.KindOf(err).Code())
		s.disconnect()
		s.log.Warn("handshake failed", logger.Field{Key: "error", Value: err})
		return nil, err
	}

	s.metrics.ObserveConnect(protocol.StatusOK)
	s.log.Info("connected",
		logger.Field{Key: "protocol_version", Value: s.server.ProtocolVersion},
		logger.Field{Key: "license", Value: s.server.License.Status})
	return s, nil
}

// handshake проверяет версию протокола и лицензию демона
func (s *Session) handshake() error {
	var welcome protocol.Welcome
	err := s.roundTrip(protocol.OpHello, protocol.Hello{
		ProtocolVersion: version.ProtocolVersion,
		Client:          s.clientName,
	}, &welcome)
	if err != nil {
		if errs.KindOf(err) == errs.KindLicense {
			return err
		}
		return errs.Network("connect", fmt.Errorf("handshake failed: %w", err))
	}

	if err := version.CompatibleProtocol(welcome.ProtocolVersion); err != nil {
		return errs.Network("connect", err)
	}

	switch lic := welcome.License; {
	case lic.Status == "":
		return errs.License("connect", "daemon reported no license")
	case lic.Status != protocol.LicenseValid:
		return errs.License("connect", "license is %s", lic.Status)
	case lic.ExpiresAt != nil && !lic.ExpiresAt.After(s.now()):
		return errs.License("connect", "license expired at %s", lic.ExpiresAt.Format(time.RFC3339))
	}

	s.server = ServerInfo{
		ProtocolVersion: welcome.ProtocolVersion,
		License:         welcome.License,
		JobDefaults:     welcome.JobDefaults,
	}
	return nil
}

// Call выполняет один обмен запрос/ответ. resp может быть nil, если ответ
// не содержит данных.
func (s *Session) Call(op protocol.Op, req any, resp any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundTrip(op, req, resp)
}

func (s *Session) roundTrip(op protocol.Op, req any, resp any) error {
	name := string(op)
	if s.conn == nil {
		return errs.Network(name, ErrNotConnected)
	}

	request, err := protocol.NewRequest(op, req)
	if err != nil {
		return errs.InvalidArgument(name, "%v", err)
	}

	start := time.Now()
	var response protocol.Response
	if err := s.conn.WriteMessage(request); err != nil {
		s.disconnect()
		s.metrics.ObserveRequest(name, errs.KindNetwork.Code(), time.Since(start))
		return errs.Network(name, err)
	}
	if err := s.conn.ReadMessage(&response); err != nil {
		s.disconnect()
		s.metrics.ObserveRequest(name, errs.KindNetwork.Code(), time.Since(start))
		return errs.Network(name, err)
	}
	elapsed := time.Since(start)

	if response.ID != request.ID {
		s.disconnect()
		s.metrics.ObserveRequest(name, errs.KindNetwork.Code(), elapsed)
		return errs.Network(name, fmt.Errorf("response id %q does not match request id %q", response.ID, request.ID))
	}

	s.metrics.ObserveRequest(name, response.Status, elapsed)
	s.log.Debug("exchange",
		logger.Field{Key: "op", Value: name},
		logger.Field{Key: "request_id", Value: request.ID},
		logger.Field{Key: "status", Value: response.Status},
		logger.Field{Key: "duration", Value: elapsed})

	if err := response.Err(name); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	if len(response.Payload) == 0 {
		return errs.Server(name, "response payload is missing")
	}
	if err := protocol.Unmarshal(response.Payload, resp); err != nil {
		return errs.Network(name, fmt.Errorf("failed to decode response payload: %w", err))
	}
	return nil
}

// disconnect закрывает соединение; сессия становится непригодной
func (s *Session) disconnect() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug("close failed", logger.Field{Key: "error", Value: err})
	}
	s.conn = nil
}

// Close закрывает сессию. Повторный вызов ничего не делает.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.log.Info("disconnected")
	if err != nil {
		return errs.Network("close", err)
	}
	return nil
}

// Connected сообщает, что сессия ещё может выполнять запросы
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Server возвращает данные демона из рукопожатия
func (s *Session) Server() ServerInfo {
	return s.server
}

// Endpoint возвращает адрес демона
func (s *Session) Endpoint() string {
	return s.endpoint.String()
}
