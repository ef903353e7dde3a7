//go:build !windows

package testutil

import (
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// UnixSocket listens on a socket file and answers every connection with a
// line of garbage, so a driver dialing it fails with a protocol error
// instead of "connection refused".
type UnixSocket struct {
	Dir      string
	Path     string
	listener net.Listener
	closed   atomic.Bool
}

// ListenUnixSocket creates socketName in a fresh temporary directory. The
// socket is closed when the test finishes.
func ListenUnixSocket(t *testing.T, socketName string) *UnixSocket {
	t.Helper()

	// t.TempDir paths can exceed the 104 byte limit for socket paths on macOS.
	dir, err := os.MkdirTemp("", "schemadef-socket")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, socketName)
	listener, err := net.Listen("unix", path)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}

	sock := &UnixSocket{Dir: dir, Path: path, listener: listener}
	go sock.serve()
	t.Cleanup(sock.Close)
	return sock
}

func (s *UnixSocket) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("not a database\n"))
		conn.Close()
	}
}

func (s *UnixSocket) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.listener.Close()
	os.RemoveAll(s.Dir)
}
