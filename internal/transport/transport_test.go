package transport

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/jobqueue/internal/errs"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		network string
		address string
		scheme  string
	}{
		{"tcp://127.0.0.1:10091", "tcp", "127.0.0.1:10091", SchemeTCP},
		{"tcp://jobqueue.local:1", "tcp", "jobqueue.local:1", SchemeTCP},
		{"tcp://[::1]:65535", "tcp", "[::1]:65535", SchemeTCP},
		{"tcp://*:5555", "tcp", ":5555", SchemeTCP},
		{"unix:///run/jobqueue/jq.sock", "unix", "/run/jobqueue/jq.sock", SchemeUnix},
		{"ipc:///tmp/jq.ipc", "unix", "/tmp/jq.ipc", SchemeIPC},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ep, err := ParseEndpoint(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.network, ep.Network)
			assert.Equal(t, tt.address, ep.Address)
			assert.Equal(t, tt.scheme, ep.Scheme)
			assert.Equal(t, tt.in, ep.String())
		})
	}
}

func TestParseEndpoint_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"127.0.0.1:10091",
		"tcp://127.0.0.1",
		"tcp://127.0.0.1:0",
		"tcp://127.0.0.1:70000",
		"tcp://host name:80",
		"udp://127.0.0.1:53",
		"unix://relative/path",
		"unix:///",
		"ipc:///tmp/dir/",
		"http://example.com:80",
	} {
		_, err := ParseEndpoint(in)
		assert.True(t, errors.Is(err, errs.ErrInvalidArgument), in)
	}
}

type message struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func TestConn_RoundTrip(t *testing.T) {
	a, b := net.Pipe()
	cfg := Config{ReadTimeout: time.Second, WriteTimeout: time.Second}
	client, server := NewConn(a, cfg), NewConn(b, cfg)
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		var in message
		if err := server.ReadMessage(&in); err != nil {
			done <- err
			return
		}
		in.Body = "echo: " + in.Body
		done <- server.WriteMessage(in)
	}()

	require.NoError(t, client.WriteMessage(message{ID: "1", Body: "line\nbreak"}))
	var out message
	require.NoError(t, client.ReadMessage(&out))
	require.NoError(t, <-done)

	assert.Equal(t, message{ID: "1", Body: "echo: line\nbreak"}, out)
}

func TestConn_ReadTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c := NewConn(a, Config{ReadTimeout: 20 * time.Millisecond})
	defer c.Close()

	var out message
	err := c.ReadMessage(&out)
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "read", terr.Op)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
}

func TestConn_PeerClosed(t *testing.T) {
	a, b := net.Pipe()
	c := NewConn(a, Config{})
	defer c.Close()
	require.NoError(t, b.Close())

	var out message
	assert.Error(t, c.ReadMessage(&out))
}

func TestConn_InvalidJSON(t *testing.T) {
	a, b := net.Pipe()
	c := NewConn(a, Config{ReadTimeout: time.Second})
	defer c.Close()
	go func() {
		_, _ = b.Write([]byte("{not json\n"))
		b.Close()
	}()

	var out message
	err := c.ReadMessage(&out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode message")
}

func TestConn_Closed(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c := NewConn(a, Config{})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.WriteMessage(message{}), ErrClosed)
	assert.ErrorIs(t, c.ReadMessage(&message{}), ErrClosed)
}

func TestListenAndDial_Unix(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "sub", "jq.sock")
	require.NoError(t, os.MkdirAll(filepath.Dir(sock), 0755))
	require.NoError(t, os.WriteFile(sock, []byte("stale"), 0600))

	ep, err := ParseEndpoint("unix://" + sock)
	require.NoError(t, err)

	l, err := Listen(ep)
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	c, err := Dial(ep, Config{ConnectTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()

	select {
	case s := <-accepted:
		s.Close()
	case <-time.After(time.Second):
		t.Fatal("connection was not accepted")
	}
}

func TestDial_Refused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ep, err := ParseEndpoint("tcp://" + addr)
	require.NoError(t, err)

	_, err = Dial(ep, Config{ConnectTimeout: time.Second})
	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "dial", terr.Op)
}
