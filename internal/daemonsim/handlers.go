package daemonsim

import (
	"time"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/logger"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/schedule"
	"github.com/aatumaykin/jobqueue/internal/status"
)

type handlerFunc func(s *Server, req *protocol.Request) (any, error)

var handlers = map[protocol.Op]handlerFunc{
	protocol.OpGetQueues:       (*Server).handleGetQueues,
	protocol.OpGetDefaultQueue: (*Server).handleGetDefaultQueue,
	protocol.OpGetQueue:        (*Server).handleGetQueue,
	protocol.OpHasQueue:        (*Server).handleHasQueue,
	protocol.OpAddQueue:        (*Server).handleAddQueue,
	protocol.OpModifyQueue:     (*Server).handleModifyQueue,
	protocol.OpDeleteQueue:     (*Server).handleDeleteQueue,
	protocol.OpSuspendQueue:    (*Server).handleSuspendQueue,
	protocol.OpResumeQueue:     (*Server).handleResumeQueue,
	protocol.OpGetJobs:         (*Server).handleGetJobs,
	protocol.OpGetJob:          (*Server).handleGetJob,
	protocol.OpScheduleJob:     (*Server).handleScheduleJob,
	protocol.OpCancelJob:       (*Server).handleCancelJob,
}

// dispatch обрабатывает один запрос сессии
func (s *Server) dispatch(sess *session, req *protocol.Request) *protocol.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := string(req.Op)
	var (
		payload any
		err     error
	)
	switch {
	case req.Op == protocol.OpHello:
		payload, err = s.handleHello(sess, req)
	case !sess.greeted:
		err = errs.InvalidMethod(op, "hello is required before %s", op)
	default:
		h, ok := handlers[req.Op]
		switch {
		case !ok:
			err = errs.InvalidMethod(op, "unknown operation %q", op)
		case !s.licenseValid():
			err = errs.License(op, "license is %s", s.licenseState())
		default:
			payload, err = h(s, req)
		}
	}

	if err != nil {
		s.log.Debug("request failed",
			logger.Field{Key: "op", Value: op},
			logger.Field{Key: "error", Value: err})
		return protocol.Fail(req.ID, err)
	}
	resp, err := protocol.OK(req.ID, payload)
	if err != nil {
		s.log.Error("failed to encode response", err, logger.Field{Key: "op", Value: op})
		return protocol.Fail(req.ID, err)
	}
	return resp
}

func (s *Server) licenseValid() bool {
	lic := s.license
	if lic.Status != protocol.LicenseValid {
		return false
	}
	return lic.ExpiresAt == nil || lic.ExpiresAt.After(s.now())
}

func (s *Server) licenseState() string {
	if s.license.Status == protocol.LicenseValid {
		return "expired"
	}
	if s.license.Status == "" {
		return "missing"
	}
	return s.license.Status
}

func (s *Server) handleHello(sess *session, req *protocol.Request) (any, error) {
	var hello protocol.Hello
	if err := req.DecodePayload(&hello); err != nil {
		return nil, errs.InvalidArgument(string(req.Op), "%v", err)
	}
	sess.greeted = true
	s.clients = append(s.clients, hello.Client)
	s.log.Debug("client greeted",
		logger.Field{Key: "client", Value: hello.Client},
		logger.Field{Key: "protocol_version", Value: hello.ProtocolVersion})

	defaults := s.defaults
	return protocol.Welcome{
		ProtocolVersion: s.protocolVersion,
		License:         s.license,
		JobDefaults:     &defaults,
	}, nil
}

func (s *Server) handleGetQueues(_ *protocol.Request) (any, error) {
	list := protocol.QueueList{Queues: []protocol.QueueSummary{}}
	for _, q := range s.state.sortedQueues() {
		list.Queues = append(list.Queues, protocol.QueueSummary{ID: q.id, Name: q.name})
	}
	return list, nil
}

func (s *Server) handleGetDefaultQueue(req *protocol.Request) (any, error) {
	q, ok := s.state.queues[s.defaultQueue]
	if !ok {
		return nil, errs.Server(string(req.Op), "default queue is missing")
	}
	return q.wire(s.now()), nil
}

func (s *Server) handleGetQueue(req *protocol.Request) (any, error) {
	q, err := s.lookupQueue(req)
	if err != nil {
		return nil, err
	}
	return q.wire(s.now()), nil
}

func (s *Server) handleHasQueue(req *protocol.Request) (any, error) {
	var ref protocol.QueueRef
	if err := decode(req, &ref); err != nil {
		return nil, err
	}
	name, err := protocol.NormalizeQueueName(string(req.Op), ref.Name)
	if err != nil {
		return nil, err
	}
	_, ok := s.state.queues[name]
	return protocol.HasQueueResult{Exists: ok}, nil
}

func (s *Server) handleAddQueue(req *protocol.Request) (any, error) {
	op := string(req.Op)
	var in protocol.AddQueue
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	name, err := protocol.NormalizeQueueName(op, in.Name)
	if err != nil {
		return nil, err
	}
	if _, exists := s.state.queues[name]; exists {
		return nil, errs.InvalidArgument(op, "queue %q already exists", name)
	}
	def, err := in.Definition.Decode()
	if err != nil {
		return nil, errs.InvalidArgument(op, "invalid queue definition: %v", err)
	}
	q := s.state.addQueue(name, def)
	s.log.Info("queue added", logger.Field{Key: "queue", Value: name}, logger.Field{Key: "id", Value: q.id})
	return q.wire(s.now()), nil
}

func (s *Server) handleModifyQueue(req *protocol.Request) (any, error) {
	op := string(req.Op)
	var in protocol.ModifyQueue
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	q, err := s.queueByName(op, in.Name)
	if err != nil {
		return nil, err
	}
	def, err := in.Definition.Decode()
	if err != nil {
		return nil, errs.InvalidArgument(op, "invalid queue definition: %v", err)
	}
	q.def = def
	s.reprioritize(q)
	return q.wire(s.now()), nil
}

func (s *Server) handleDeleteQueue(req *protocol.Request) (any, error) {
	q, err := s.lookupQueue(req)
	if err != nil {
		return nil, err
	}
	if st := q.statusAt(s.now()); st != status.QueueSuspended {
		return nil, errs.Server(string(req.Op), "queue %q must be suspended before deletion, status is %s", q.name, st)
	}
	if q.name == s.defaultQueue {
		return nil, errs.Server(string(req.Op), "default queue cannot be deleted")
	}
	s.state.deleteQueue(q)
	s.log.Info("queue deleted", logger.Field{Key: "queue", Value: q.name})
	return q.wire(s.now()), nil
}

func (s *Server) handleSuspendQueue(req *protocol.Request) (any, error) {
	return s.transition(req, status.QueueSuspended)
}

func (s *Server) handleResumeQueue(req *protocol.Request) (any, error) {
	return s.transition(req, status.QueueRunning)
}

func (s *Server) transition(req *protocol.Request, target status.Queue) (any, error) {
	q, err := s.lookupQueue(req)
	if err != nil {
		return nil, err
	}
	q.request(target, s.now(), s.transitionDelay)
	return q.wire(s.now()), nil
}

func (s *Server) handleGetJobs(req *protocol.Request) (any, error) {
	var query protocol.JobsQuery
	if err := decode(req, &query); err != nil {
		return nil, err
	}
	q, err := s.queueByName(string(req.Op), query.Queue)
	if err != nil {
		return nil, err
	}
	list := protocol.JobList{Jobs: []protocol.Job{}}
	for _, j := range s.state.queueJobs(q.name, query.Name) {
		list.Jobs = append(list.Jobs, j.wire)
	}
	return list, nil
}

func (s *Server) handleGetJob(req *protocol.Request) (any, error) {
	j, err := s.lookupJob(req)
	if err != nil {
		return nil, err
	}
	return j.wire, nil
}

func (s *Server) handleCancelJob(req *protocol.Request) (any, error) {
	j, err := s.lookupJob(req)
	if err != nil {
		return nil, err
	}
	before := status.Job(j.wire.Status)
	j.cancel(s.now())
	s.log.Info("job cancel requested",
		logger.Field{Key: "job_id", Value: j.wire.ID},
		logger.Field{Key: "from", Value: before.String()},
		logger.Field{Key: "to", Value: status.Job(j.wire.Status).String()})
	return j.wire, nil
}

func (s *Server) handleScheduleJob(req *protocol.Request) (any, error) {
	op := string(req.Op)
	var in protocol.ScheduleJob
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	q, err := s.queueByName(op, in.Queue)
	if err != nil {
		return nil, err
	}
	def, err := in.Definition.Decode()
	if err != nil {
		return nil, errs.InvalidArgument(op, "invalid job definition: %v", err)
	}
	sched, err := in.Schedule.Decode()
	if err != nil {
		return nil, errs.InvalidArgument(op, "invalid schedule: %v", err)
	}
	opts, err := in.Options.Decode()
	if err != nil {
		return nil, errs.InvalidArgument(op, "invalid job options: %v", err)
	}

	now := s.now()
	wireDef, err := protocol.EncodeDefinition(def)
	if err != nil {
		return nil, errs.InvalidArgument(op, "invalid job definition: %v", err)
	}
	scheduledAt := scheduledTime(sched, now)

	s.state.nextJobID++
	j := &job{
		wire: protocol.Job{
			ID:            s.state.nextJobID,
			Queue:         q.name,
			Status:        int(status.JobScheduled),
			Definition:    wireDef,
			Schedule:      protocol.EncodeSchedule(sched),
			Options:       protocol.EncodeOptions(opts),
			CreationTime:  now,
			ScheduledTime: &scheduledAt,
		},
		priority: options.Resolve(opts, q.def, s.defaults).Priority,
	}
	s.state.jobs[j.wire.ID] = j

	s.log.Info("job scheduled",
		logger.Field{Key: "job_id", Value: j.wire.ID},
		logger.Field{Key: "queue", Value: q.name},
		logger.Field{Key: "kind", Value: string(def.Kind())})
	return j.wire, nil
}

// scheduledTime возвращает время первого запуска задания
func scheduledTime(sched schedule.Schedule, now time.Time) time.Time {
	switch v := sched.(type) {
	case schedule.ScheduledTime:
		return v.Time()
	case schedule.RecurringSchedule:
		if next := v.Next(now); !next.IsZero() {
			return next
		}
	}
	return now
}

// reprioritize пересчитывает порядок выдачи заданий после изменения очереди
func (s *Server) reprioritize(q *queue) {
	for _, j := range s.state.jobs {
		if j.wire.Queue != q.name {
			continue
		}
		opts, err := j.wire.Options.Decode()
		if err != nil {
			continue
		}
		j.priority = options.Resolve(opts, q.def, s.defaults).Priority
	}
}

func (s *Server) lookupQueue(req *protocol.Request) (*queue, error) {
	var ref protocol.QueueRef
	if err := decode(req, &ref); err != nil {
		return nil, err
	}
	return s.queueByName(string(req.Op), ref.Name)
}

func (s *Server) queueByName(op, name string) (*queue, error) {
	normalized, err := protocol.NormalizeQueueName(op, name)
	if err != nil {
		return nil, err
	}
	q, ok := s.state.queues[normalized]
	if !ok {
		return nil, errs.InvalidArgument(op, "queue %q does not exist", normalized)
	}
	return q, nil
}

func (s *Server) lookupJob(req *protocol.Request) (*job, error) {
	op := string(req.Op)
	var ref protocol.JobRef
	if err := decode(req, &ref); err != nil {
		return nil, err
	}
	q, err := s.queueByName(op, ref.Queue)
	if err != nil {
		return nil, err
	}
	j, ok := s.state.jobs[ref.ID]
	if !ok || j.wire.Queue != q.name {
		return nil, errs.InvalidArgument(op, "job %d does not exist in queue %q", ref.ID, q.name)
	}
	return j, nil
}

func decode(req *protocol.Request, v any) error {
	if err := req.DecodePayload(v); err != nil {
		return errs.InvalidArgument(string(req.Op), "%v", err)
	}
	return nil
}
