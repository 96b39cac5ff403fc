package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/jobqueue/internal/daemonsim"
	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/metrics"
	"github.com/aatumaykin/jobqueue/internal/protocol"
	"github.com/aatumaykin/jobqueue/internal/transport"
)

var testConfig = transport.Config{
	ConnectTimeout: time.Second,
	ReadTimeout:    2 * time.Second,
	WriteTimeout:   2 * time.Second,
}

func startSim(t *testing.T, opts ...daemonsim.Option) string {
	t.Helper()
	srv := daemonsim.New(opts...)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.Serve(context.Background(), l)
	t.Cleanup(srv.Stop)
	return "tcp://" + srv.Addr()
}

// fakeDaemon отвечает на каждый запрос функцией reply
func fakeDaemon(t *testing.T, reply func(req protocol.Request) string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				scanner := bufio.NewScanner(c)
				for scanner.Scan() {
					var req protocol.Request
					if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
						return
					}
					line := reply(req)
					if line == "" {
						return
					}
					if _, err := c.Write([]byte(line + "\n")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return "tcp://" + l.Addr().String()
}

func welcome(t *testing.T, id string, w protocol.Welcome) string {
	t.Helper()
	resp, err := protocol.OK(id, w)
	require.NoError(t, err)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func TestDial(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	endpoint := startSim(t)

	s, err := Dial(endpoint, testConfig, WithMetrics(m), WithClientName("unit"))
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Connected())
	assert.Equal(t, endpoint, s.Endpoint())
	info := s.Server()
	assert.Equal(t, protocol.LicenseValid, info.License.Status)
	require.NotNil(t, info.JobDefaults)
	assert.Equal(t, 120, info.JobDefaults.Timeout)

	var list protocol.QueueList
	require.NoError(t, s.Call(protocol.OpGetQueues, nil, &list))
	assert.Len(t, list.Queues, 1)

	count, err := testutil.GatherAndCount(reg, "test_client_connections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = testutil.GatherAndCount(reg, "test_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "hello and get_queues")
}

func TestDial_InvalidEndpoint(t *testing.T) {
	_, err := Dial("http://localhost", testConfig)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestDial_Refused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = Dial("tcp://"+addr, testConfig)
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestDial_VersionMismatch(t *testing.T) {
	endpoint := startSim(t, daemonsim.WithProtocolVersion("2.0.0"))
	_, err := Dial(endpoint, testConfig)
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.ErrorContains(t, err, "2.0.0")
}

func TestDial_License(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	tests := []struct {
		name    string
		license protocol.License
	}{
		{"missing", protocol.License{}},
		{"invalid", protocol.License{Status: "invalid"}},
		{"expired", protocol.License{Status: protocol.LicenseValid, ExpiresAt: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := startSim(t, daemonsim.WithLicense(tt.license))
			_, err := Dial(endpoint, testConfig)
			assert.ErrorIs(t, err, errs.ErrLicense)
		})
	}
}

func TestDial_HandshakeRejected(t *testing.T) {
	endpoint := fakeDaemon(t, func(req protocol.Request) string {
		data, _ := json.Marshal(protocol.Fail(req.ID, errs.InvalidMethod("hello", "not supported")))
		return string(data)
	})
	_, err := Dial(endpoint, testConfig)
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestCall_IDMismatchDisconnects(t *testing.T) {
	endpoint := fakeDaemon(t, func(req protocol.Request) string {
		if req.Op == protocol.OpHello {
			return welcome(t, req.ID, protocol.Welcome{
				ProtocolVersion: "1.2.0",
				License:         protocol.License{Status: protocol.LicenseValid},
			})
		}
		return `{"id":"someone-else","status":"ok","payload":{}}`
	})

	s, err := Dial(endpoint, testConfig)
	require.NoError(t, err)

	err = s.Call(protocol.OpGetQueues, nil, &protocol.QueueList{})
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.False(t, s.Connected())

	err = s.Call(protocol.OpGetQueues, nil, &protocol.QueueList{})
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCall_MalformedPayload(t *testing.T) {
	endpoint := fakeDaemon(t, func(req protocol.Request) string {
		switch req.Op {
		case protocol.OpHello:
			return welcome(t, req.ID, protocol.Welcome{
				ProtocolVersion: "1.2.0",
				License:         protocol.License{Status: protocol.LicenseValid},
			})
		case protocol.OpGetQueues:
			return `{"id":"` + req.ID + `","status":"ok","payload":{"queues":"not a list"}}`
		default:
			return `{"id":"` + req.ID + `","status":"ok"}`
		}
	})

	s, err := Dial(endpoint, testConfig)
	require.NoError(t, err)
	defer s.Close()

	err = s.Call(protocol.OpGetQueues, nil, &protocol.QueueList{})
	assert.ErrorIs(t, err, errs.ErrNetwork)

	err = s.Call(protocol.OpGetQueue, protocol.QueueRef{Name: "x"}, &protocol.Queue{})
	assert.ErrorIs(t, err, errs.ErrServer, "missing payload")
}

func TestCall_DaemonGone(t *testing.T) {
	endpoint := fakeDaemon(t, func(req protocol.Request) string {
		if req.Op == protocol.OpHello {
			return welcome(t, req.ID, protocol.Welcome{
				ProtocolVersion: "1.2.0",
				License:         protocol.License{Status: protocol.LicenseValid},
			})
		}
		return ""
	})

	s, err := Dial(endpoint, testConfig)
	require.NoError(t, err)

	err = s.Call(protocol.OpGetQueues, nil, &protocol.QueueList{})
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.False(t, s.Connected())
}

func TestCall_ErrorStatus(t *testing.T) {
	endpoint := startSim(t)
	s, err := Dial(endpoint, testConfig)
	require.NoError(t, err)
	defer s.Close()

	err = s.Call(protocol.OpGetQueue, protocol.QueueRef{Name: "missing"}, &protocol.Queue{})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.True(t, s.Connected(), "daemon errors keep the session")
}

func TestClose(t *testing.T) {
	endpoint := startSim(t)
	s, err := Dial(endpoint, testConfig)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.Connected())

	err = s.Call(protocol.OpGetQueues, nil, &protocol.QueueList{})
	assert.ErrorIs(t, err, errs.ErrNetwork)
}
