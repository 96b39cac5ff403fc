package daemonsim

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/options"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/status"
	"github.com/aatumaykin/jobqueue/internal/transport"
)

// rawClient говорит с симулятором напрямую на уровне протокола
type rawClient struct {
	t    *testing.T
	conn *transport.Conn
}

func startServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()
	srv := New(opts...)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.Serve(context.Background(), l)
	t.Cleanup(srv.Stop)
	return srv, "tcp://" + srv.Addr()
}

func dialRaw(t *testing.T, endpoint string) *rawClient {
	t.Helper()
	ep, err := transport.ParseEndpoint(endpoint)
	require.NoError(t, err)
	conn, err := transport.Dial(ep, transport.Config{ReadTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &rawClient{t: t, conn: conn}
}

func greeted(t *testing.T, endpoint string) *rawClient {
	t.Helper()
	c := dialRaw(t, endpoint)
	var w protocol.Welcome
	require.NoError(t, c.call(protocol.OpHello, protocol.Hello{ProtocolVersion: "1.2.0"}, &w))
	return c
}

func (c *rawClient) call(op protocol.Op, payload, out any) error {
	c.t.Helper()
	req, err := protocol.NewRequest(op, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(req))

	var resp protocol.Response
	require.NoError(c.t, c.conn.ReadMessage(&resp))
	require.Equal(c.t, req.ID, resp.ID)
	if err := resp.Err(string(op)); err != nil {
		return err
	}
	if out != nil {
		return json.Unmarshal(resp.Payload, out)
	}
	return nil
}

func TestHello(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	srv, endpoint := startServer(t,
		WithProtocolVersion("1.4.2"),
		WithLicense(protocol.License{Status: protocol.LicenseValid, ExpiresAt: &expires}),
	)
	c := dialRaw(t, endpoint)

	var list protocol.QueueList
	err := c.call(protocol.OpGetQueues, nil, &list)
	assert.ErrorIs(t, err, errs.ErrInvalidMethod, "hello must come first")

	var w protocol.Welcome
	require.NoError(t, c.call(protocol.OpHello, protocol.Hello{ProtocolVersion: "1.2.0", Client: "test"}, &w))
	assert.Equal(t, "1.4.2", w.ProtocolVersion)
	assert.Equal(t, protocol.LicenseValid, w.License.Status)
	require.NotNil(t, w.License.ExpiresAt)
	assert.True(t, expires.Equal(*w.License.ExpiresAt))
	require.NotNil(t, w.JobDefaults)
	assert.Equal(t, 120, w.JobDefaults.Timeout)
	assert.Equal(t, []string{"test"}, srv.Clients())

	require.NoError(t, c.call(protocol.OpGetQueues, nil, &list))
	require.Len(t, list.Queues, 1)
	assert.Equal(t, protocol.QueueSummary{ID: 1, Name: "default"}, list.Queues[0])
}

func TestUnknownOperation(t *testing.T) {
	_, endpoint := startServer(t)
	c := greeted(t, endpoint)
	err := c.call(protocol.Op("reboot"), nil, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidMethod)
}

func TestLicenseRevoked(t *testing.T) {
	srv, endpoint := startServer(t)
	c := greeted(t, endpoint)

	srv.SetLicense(protocol.License{Status: "revoked"})
	err := c.call(protocol.OpGetQueues, nil, &protocol.QueueList{})
	assert.ErrorIs(t, err, errs.ErrLicense)

	past := time.Now().Add(-time.Hour)
	srv.SetLicense(protocol.License{Status: protocol.LicenseValid, ExpiresAt: &past})
	err = c.call(protocol.OpGetQueues, nil, &protocol.QueueList{})
	assert.ErrorIs(t, err, errs.ErrLicense)
}

func TestQueueLifecycle(t *testing.T) {
	srv, endpoint := startServer(t)
	c := greeted(t, endpoint)

	var q protocol.Queue
	prio := int(options.PriorityHigh)
	require.NoError(t, c.call(protocol.OpAddQueue, protocol.AddQueue{
		Name:       "emails",
		Definition: protocol.QueueDefinition{Priority: &prio},
	}, &q))
	assert.Equal(t, int64(2), q.ID)
	assert.Equal(t, int(status.QueueRunning), q.Status)

	err := c.call(protocol.OpAddQueue, protocol.AddQueue{Name: "emails"}, &q)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument, "duplicate name")

	var has protocol.HasQueueResult
	require.NoError(t, c.call(protocol.OpHasQueue, protocol.QueueRef{Name: "emails"}, &has))
	assert.True(t, has.Exists)
	require.NoError(t, c.call(protocol.OpHasQueue, protocol.QueueRef{Name: "nope"}, &has))
	assert.False(t, has.Exists)

	err = c.call(protocol.OpDeleteQueue, protocol.QueueRef{Name: "emails"}, &q)
	assert.ErrorIs(t, err, errs.ErrServer, "running queue cannot be deleted")

	require.NoError(t, c.call(protocol.OpSuspendQueue, protocol.QueueRef{Name: "emails"}, &q))
	assert.Equal(t, int(status.QueueSuspended), q.Status)

	require.NoError(t, c.call(protocol.OpDeleteQueue, protocol.QueueRef{Name: "emails"}, &q))
	assert.Equal(t, int(status.QueueDeleted), q.Status)

	_, ok := srv.QueueStatus("emails")
	assert.False(t, ok)
	err = c.call(protocol.OpGetQueue, protocol.QueueRef{Name: "emails"}, &q)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestModifyQueue(t *testing.T) {
	_, endpoint := startServer(t)
	c := greeted(t, endpoint)

	retries := 4
	var q protocol.Queue
	require.NoError(t, c.call(protocol.OpModifyQueue, protocol.ModifyQueue{
		Name:       "default",
		Definition: protocol.QueueDefinition{Defaults: &protocol.Options{AllowedRetries: &retries}},
	}, &q))
	require.NotNil(t, q.Definition.Defaults)
	assert.Equal(t, 4, *q.Definition.Defaults.AllowedRetries)

	bad := 0
	err := c.call(protocol.OpModifyQueue, protocol.ModifyQueue{
		Name:       "default",
		Definition: protocol.QueueDefinition{Defaults: &protocol.Options{Timeout: &bad}},
	}, &q)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestDefaultQueueCannotBeDeleted(t *testing.T) {
	_, endpoint := startServer(t)
	c := greeted(t, endpoint)

	var q protocol.Queue
	require.NoError(t, c.call(protocol.OpSuspendQueue, protocol.QueueRef{Name: "default"}, &q))
	err := c.call(protocol.OpDeleteQueue, protocol.QueueRef{Name: "default"}, &q)
	assert.ErrorIs(t, err, errs.ErrServer)
}

func TestTransitionDelay(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	srv, endpoint := startServer(t, WithTransitionDelay(time.Minute))
	srv.mu.Lock()
	srv.now = func() time.Time { return now }
	srv.mu.Unlock()
	c := greeted(t, endpoint)

	var q protocol.Queue
	require.NoError(t, c.call(protocol.OpSuspendQueue, protocol.QueueRef{Name: "default"}, &q))
	assert.Equal(t, int(status.QueueRunning), q.Status, "transition is not applied yet")

	srv.mu.Lock()
	now = now.Add(time.Minute)
	srv.mu.Unlock()

	require.NoError(t, c.call(protocol.OpGetQueue, protocol.QueueRef{Name: "default"}, &q))
	assert.Equal(t, int(status.QueueSuspended), q.Status)
}

func scheduleCLI(t *testing.T, c *rawClient, queue, name string, opts *protocol.Options) protocol.Job {
	t.Helper()
	var j protocol.Job
	require.NoError(t, c.call(protocol.OpScheduleJob, protocol.ScheduleJob{
		Queue:      queue,
		Definition: protocol.Definition{Kind: "cli", Name: name, CLI: &protocol.CLIDefinition{Command: "echo " + name}},
		Options:    opts,
	}, &j))
	return j
}

func TestScheduleJob(t *testing.T) {
	_, endpoint := startServer(t)
	c := greeted(t, endpoint)

	j := scheduleCLI(t, c, "default", "report", nil)
	assert.Equal(t, int64(1), j.ID)
	assert.Equal(t, "default", j.Queue)
	assert.Equal(t, int(status.JobScheduled), j.Status)
	assert.Equal(t, "report", j.Definition.Name)
	assert.False(t, j.CreationTime.IsZero())
	require.NotNil(t, j.ScheduledTime)
	assert.Nil(t, j.CompletionTime)

	at := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, c.call(protocol.OpScheduleJob, protocol.ScheduleJob{
		Queue:      "default",
		Definition: protocol.Definition{Kind: "cli", CLI: &protocol.CLIDefinition{Command: "true"}},
		Schedule:   &protocol.Schedule{Kind: "time", Time: &at},
	}, &j))
	assert.True(t, at.Equal(*j.ScheduledTime))

	err := c.call(protocol.OpScheduleJob, protocol.ScheduleJob{
		Queue:      "default",
		Definition: protocol.Definition{Kind: "cli", CLI: &protocol.CLIDefinition{Command: `echo "open`}},
	}, &j)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	err = c.call(protocol.OpScheduleJob, protocol.ScheduleJob{
		Queue:      "missing",
		Definition: protocol.Definition{Kind: "cli", CLI: &protocol.CLIDefinition{Command: "true"}},
	}, &j)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestGetJobs_Order(t *testing.T) {
	_, endpoint := startServer(t)
	c := greeted(t, endpoint)

	low := int(options.PriorityLow)
	urgent := int(options.PriorityUrgent)
	a := scheduleCLI(t, c, "default", "a", &protocol.Options{Priority: &low})
	b := scheduleCLI(t, c, "default", "b", nil)
	d := scheduleCLI(t, c, "default", "b", &protocol.Options{Priority: &urgent})
	e := scheduleCLI(t, c, "default", "e", nil)

	var list protocol.JobList
	require.NoError(t, c.call(protocol.OpGetJobs, protocol.JobsQuery{Queue: "default"}, &list))
	ids := make([]int64, 0, len(list.Jobs))
	for _, j := range list.Jobs {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []int64{d.ID, b.ID, e.ID, a.ID}, ids)

	require.NoError(t, c.call(protocol.OpGetJobs, protocol.JobsQuery{Queue: "default", Name: "b"}, &list))
	assert.Len(t, list.Jobs, 2)

	require.NoError(t, c.call(protocol.OpGetJobs, protocol.JobsQuery{Queue: "default", Name: "zzz"}, &list))
	assert.Empty(t, list.Jobs)
}

func TestCancelJob(t *testing.T) {
	srv, endpoint := startServer(t)
	c := greeted(t, endpoint)

	scheduled := scheduleCLI(t, c, "default", "s", nil)
	running := scheduleCLI(t, c, "default", "r", nil)
	done := scheduleCLI(t, c, "default", "d", nil)
	require.NoError(t, srv.SetJobStatus(running.ID, status.JobRunning))
	require.NoError(t, srv.SetJobStatus(done.ID, status.JobCompleted))

	tests := []struct {
		id   int64
		want status.Job
	}{
		{scheduled.ID, status.JobRemoved},
		{running.ID, status.JobUnknown},
		{done.ID, status.JobCompleted},
	}
	for _, tt := range tests {
		var j protocol.Job
		require.NoError(t, c.call(protocol.OpCancelJob, protocol.JobRef{Queue: "default", ID: tt.id}, &j))
		assert.Equal(t, int(tt.want), j.Status, "job %d", tt.id)
	}

	var j protocol.Job
	require.NoError(t, c.call(protocol.OpGetJob, protocol.JobRef{Queue: "default", ID: scheduled.ID}, &j))
	assert.NotNil(t, j.CompletionTime)

	err := c.call(protocol.OpCancelJob, protocol.JobRef{Queue: "default", ID: 999}, &j)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestJobBelongsToQueue(t *testing.T) {
	_, endpoint := startServer(t)
	c := greeted(t, endpoint)

	require.NoError(t, c.call(protocol.OpAddQueue, protocol.AddQueue{Name: "other"}, &protocol.Queue{}))
	j := scheduleCLI(t, c, "default", "x", nil)

	err := c.call(protocol.OpGetJob, protocol.JobRef{Queue: "other", ID: j.ID}, &protocol.Job{})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestDeleteQueueRemovesJobs(t *testing.T) {
	srv, endpoint := startServer(t)
	c := greeted(t, endpoint)

	require.NoError(t, c.call(protocol.OpAddQueue, protocol.AddQueue{Name: "tmp"}, &protocol.Queue{}))
	scheduleCLI(t, c, "tmp", "a", nil)
	scheduleCLI(t, c, "default", "b", nil)
	require.Equal(t, 2, srv.JobCount())

	require.NoError(t, c.call(protocol.OpSuspendQueue, protocol.QueueRef{Name: "tmp"}, &protocol.Queue{}))
	require.NoError(t, c.call(protocol.OpDeleteQueue, protocol.QueueRef{Name: "tmp"}, &protocol.Queue{}))
	assert.Equal(t, 1, srv.JobCount())
}

func TestHooks_UnknownJob(t *testing.T) {
	srv := New()
	assert.Error(t, srv.SetJobStatus(42, status.JobCompleted))
	assert.Error(t, srv.SetJobOutput(42, "out"))
	assert.Error(t, srv.SetRetryCount(42, 1))
	assert.Error(t, srv.SetJobStatus(1, status.Job(99)))
}

func TestStartUnixSocket(t *testing.T) {
	endpoint := "unix://" + filepath.Join(t.TempDir(), "run", "jq.sock")
	srv := New()
	require.NoError(t, srv.Start(context.Background(), endpoint))
	defer srv.Stop()

	c := greeted(t, endpoint)
	var q protocol.Queue
	require.NoError(t, c.call(protocol.OpGetDefaultQueue, nil, &q))
	assert.Equal(t, "default", q.Name)
}

func TestStop_ClosesConnections(t *testing.T) {
	srv, endpoint := startServer(t)
	c := greeted(t, endpoint)
	srv.Stop()

	var resp protocol.Response
	assert.Error(t, c.conn.ReadMessage(&resp))
}

// gatedListener отдаёт подключение только после закрытия listener-а
type gatedListener struct {
	conns  chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func newGatedListener() *gatedListener {
	return &gatedListener{conns: make(chan net.Conn), closed: make(chan struct{})}
}

func (l *gatedListener) Accept() (net.Conn, error) {
	c, ok := <-l.conns
	if !ok {
		return nil, net.ErrClosed
	}
	return c, nil
}

func (l *gatedListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *gatedListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func TestStop_ConnectionAcceptedDuringStop(t *testing.T) {
	srv := New()
	l := newGatedListener()
	srv.Serve(context.Background(), l)

	stopped := make(chan struct{})
	go func() {
		srv.Stop()
		close(stopped)
	}()

	// Stop уже закрыл известные подключения и listener; Accept возвращает ещё одно
	<-l.closed
	client, server := net.Pipe()
	defer client.Close()
	l.conns <- server
	close(l.conns)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a connection accepted while stopping")
	}

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestPIDFile(t *testing.T) {
	path := PIDPath(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, WritePID(path, 4242))

	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, RemovePID(path))
	require.NoError(t, RemovePID(path))
	_, err = ReadPID(path)
	assert.Error(t, err)

	assert.False(t, IsRunning(0))
}
