package daemonsim

import (
	"fmt"
	"slices"
	"time"

	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/status"
)

// SetJobStatus меняет статус задания, как это сделал бы обработчик демона.
// Для завершающих статусов проставляется время завершения.
func (s *Server) SetJobStatus(id int64, st status.Job) error {
	if !st.Valid() {
		return fmt.Errorf("unknown job status %d", int(st))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.state.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not found", id)
	}
	j.setStatus(st, s.now())
	return nil
}

// SetJobOutput сохраняет вывод задания
func (s *Server) SetJobOutput(id int64, output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.state.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not found", id)
	}
	j.wire.Output = &output
	return nil
}

// SetRetryCount задаёт число выполненных повторов задания
func (s *Server) SetRetryCount(id int64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.state.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not found", id)
	}
	j.wire.RetryCount = count
	return nil
}

// SetLicense меняет состояние лицензии для последующих запросов
func (s *Server) SetLicense(l protocol.License) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.license = l
}

// SetTransitionDelay меняет задержку смены статуса очереди
func (s *Server) SetTransitionDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionDelay = d
}

// QueueStatus возвращает текущий статус очереди
func (s *Server) QueueStatus(name string) (status.Queue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.state.queues[name]
	if !ok {
		return status.QueueDeleted, false
	}
	return q.statusAt(s.now()), true
}

// JobCount возвращает число заданий во всех очередях
func (s *Server) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.jobs)
}

// Clients возвращает имена клиентов из рукопожатий в порядке подключения
func (s *Server) Clients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.clients)
}
