// Package jobqueue is the public face of the client: a JobQueue connection
// and the Queue and Job handles obtained from it.
//
// Handles are local caches of daemon state. They change only when one of
// their own methods talks to the daemon (Refresh, Suspend, Resume); values
// returned by getters are copies and never alias the handle.
package jobqueue

import (
	"sort"

	"github.com/aatumaykin/jobqueue/internal/client"
	"github.com/aatumaykin/jobqueue/internal/config"
	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/metrics"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/transport"
)

// QueueInfo - идентичность очереди из списка очередей
type QueueInfo struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Option настраивает подключение
type Option func(*JobQueue)

// WithConfig задаёт конфигурацию клиента
func WithConfig(cfg *config.Config) Option {
	return func(jq *JobQueue) {
		if cfg != nil {
			jq.cfg = cfg
		}
	}
}

// WithLogger задаёт логгер
func WithLogger(l *logger.Logger) Option {
	return func(jq *JobQueue) {
		if l != nil {
			jq.log = l
		}
	}
}

// WithMetrics задаёт коллекторы метрик
func WithMetrics(m *metrics.Metrics) Option {
	return func(jq *JobQueue) { jq.metrics = m }
}

// WithClientName задаёт имя клиента, которое видит демон
func WithClientName(name string) Option {
	return func(jq *JobQueue) { jq.clientName = name }
}

// JobQueue - подключение к демону очередей
type JobQueue struct {
	session  *client.Session
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Metrics
	defaults options.Effective

	clientName string
}

// Connect подключается к демону. Пустой endpoint означает адрес из конфигурации.
func Connect(endpoint string, opts ...Option) (*JobQueue, error) {
	jq := &JobQueue{
		cfg: config.Default(),
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(jq)
	}
	if endpoint == "" {
		endpoint = jq.cfg.Client.Endpoint
	}

	defaults, err := jq.cfg.Defaults.Effective()
	if err != nil {
		return nil, errs.InvalidArgument("connect", "%v", err)
	}

	clientOpts := []client.Option{client.WithLogger(jq.log), client.WithMetrics(jq.metrics)}
	if jq.clientName != "" {
		clientOpts = append(clientOpts, client.WithClientName(jq.clientName))
	}
	session, err := client.Dial(endpoint, transport.Config{
		ConnectTimeout: jq.cfg.Client.ConnectTimeout(),
		ReadTimeout:    jq.cfg.Client.ReadTimeout(),
		WriteTimeout:   jq.cfg.Client.WriteTimeout(),
	}, clientOpts...)
	if err != nil {
		return nil, err
	}
	jq.session = session

	// Демон сообщает свои значения по умолчанию; конфигурация - запасной вариант
	jq.defaults = defaults
	if d := session.Server().JobDefaults; d != nil {
		jq.defaults = *d
	}
	return jq, nil
}

// call выполняет запрос; несвязанное подключение даёт NotInitialized
func (jq *JobQueue) call(op protocol.Op, req, resp any) error {
	if jq == nil || jq.session == nil {
		return errs.NotInitialized(string(op))
	}
	return jq.session.Call(op, req, resp)
}

// Queues возвращает список очередей по возрастанию id
func (jq *JobQueue) Queues() ([]QueueInfo, error) {
	var list protocol.QueueList
	if err := jq.call(protocol.OpGetQueues, nil, &list); err != nil {
		return nil, err
	}
	out := make([]QueueInfo, 0, len(list.Queues))
	for _, q := range list.Queues {
		out = append(out, QueueInfo{ID: q.ID, Name: q.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DefaultQueue возвращает очередь по умолчанию
func (jq *JobQueue) DefaultQueue() (*Queue, error) {
	var wire protocol.Queue
	if err := jq.call(protocol.OpGetDefaultQueue, nil, &wire); err != nil {
		return nil, err
	}
	return jq.newQueue(string(protocol.OpGetDefaultQueue), wire)
}

// Queue возвращает очередь по имени; неизвестное имя - InvalidArgument
func (jq *JobQueue) Queue(name string) (*Queue, error) {
	op := string(protocol.OpGetQueue)
	name, err := protocol.NormalizeQueueName(op, name)
	if err != nil {
		return nil, err
	}
	var wire protocol.Queue
	if err := jq.call(protocol.OpGetQueue, protocol.QueueRef{Name: name}, &wire); err != nil {
		return nil, err
	}
	return jq.newQueue(op, wire)
}

// HasQueue сообщает, существует ли очередь
func (jq *JobQueue) HasQueue(name string) (bool, error) {
	name, err := protocol.NormalizeQueueName(string(protocol.OpHasQueue), name)
	if err != nil {
		return false, err
	}
	var res protocol.HasQueueResult
	if err := jq.call(protocol.OpHasQueue, protocol.QueueRef{Name: name}, &res); err != nil {
		return false, err
	}
	return res.Exists, nil
}

// AddQueue создаёт очередь. def может быть nil: тогда всё наследуется.
func (jq *JobQueue) AddQueue(name string, def *options.QueueDefinition) (*Queue, error) {
	op := string(protocol.OpAddQueue)
	name, err := protocol.NormalizeQueueName(op, name)
	if err != nil {
		return nil, err
	}
	var wire protocol.Queue
	req := protocol.AddQueue{Name: name, Definition: protocol.EncodeQueueDefinition(def)}
	if err := jq.call(protocol.OpAddQueue, req, &wire); err != nil {
		return nil, err
	}
	jq.log.Info("queue added", logger.Field{Key: "queue", Value: name}, logger.Field{Key: "id", Value: wire.ID})
	return jq.newQueue(op, wire)
}

// ModifyQueue заменяет определение очереди
func (jq *JobQueue) ModifyQueue(name string, def *options.QueueDefinition) (*Queue, error) {
	op := string(protocol.OpModifyQueue)
	name, err := protocol.NormalizeQueueName(op, name)
	if err != nil {
		return nil, err
	}
	var wire protocol.Queue
	req := protocol.ModifyQueue{Name: name, Definition: protocol.EncodeQueueDefinition(def)}
	if err := jq.call(protocol.OpModifyQueue, req, &wire); err != nil {
		return nil, err
	}
	return jq.newQueue(op, wire)
}

// DeleteQueue удаляет приостановленную очередь вместе с её заданиями.
// Удаление работающей очереди - ServerError.
func (jq *JobQueue) DeleteQueue(name string) error {
	name, err := protocol.NormalizeQueueName(string(protocol.OpDeleteQueue), name)
	if err != nil {
		return err
	}
	var wire protocol.Queue
	if err := jq.call(protocol.OpDeleteQueue, protocol.QueueRef{Name: name}, &wire); err != nil {
		return err
	}
	jq.log.Info("queue deleted", logger.Field{Key: "queue", Value: name})
	return nil
}

// SystemDefaults возвращает системные параметры заданий
func (jq *JobQueue) SystemDefaults() options.Effective {
	if jq == nil {
		return options.Effective{}
	}
	return jq.defaults
}

// Endpoint возвращает адрес демона
func (jq *JobQueue) Endpoint() string {
	if jq == nil || jq.session == nil {
		return ""
	}
	return jq.session.Endpoint()
}

// Close закрывает подключение; полученные ранее handle-ы перестают работать
func (jq *JobQueue) Close() error {
	if jq == nil || jq.session == nil {
		return nil
	}
	return jq.session.Close()
}
