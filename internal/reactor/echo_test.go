package reactor

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lutianen/lux/internal/buffer"
)

// TestEchoScenario exercises spec.md §8 scenarios S1 (echo one message) and
// S2 (shutdown on command) end to end: a Server with 0 worker loops and a
// Client on the same base loop.
func TestEchoScenario(t *testing.T) {
	loop := newTestLoop(t)

	addr, err := ResolveTCPAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ResolveTCPAddr: %v", err)
	}

	var serverMu sync.Mutex
	var serverGotMessage []byte
	var serverReceiveTime time.Time
	serverMsg := make(chan struct{}, 1)

	serverReady := make(chan struct{})
	var server *Server
	loop.RunInLoop(func() {
		var err error
		server, err = NewServer(loop, "echo-test", addr, false, nil)
		if err != nil {
			t.Errorf("NewServer: %v", err)
			close(serverReady)
			return
		}
		server.MessageCallback = func(conn *Connection, input *buffer.Buffer, receiveTime time.Time) {
			line := input.RetrieveBytes(input.ReadableBytes())

			serverMu.Lock()
			serverGotMessage = append([]byte(nil), line...)
			serverReceiveTime = receiveTime
			serverMu.Unlock()

			if bytes.Equal(line, []byte("exit\n")) {
				conn.Send([]byte("bye\n"))
				conn.Shutdown()
			} else {
				conn.Send(line)
			}
			select {
			case serverMsg <- struct{}{}:
			default:
			}
		}
		if err := server.Start(0); err != nil {
			t.Errorf("server.Start: %v", err)
		}
		close(serverReady)
	})
	<-serverReady

	listenAddr := serverListenAddr(t, server)

	var clientMu sync.Mutex
	var clientGotMessage []byte
	clientMsg := make(chan struct{}, 1)
	clientClosed := make(chan struct{})

	client := NewClient(loop, "echo-client", listenAddr, nil)
	client.ConnectionCallback = func(conn *Connection) {
		if !conn.Connected() {
			close(clientClosed)
		}
	}
	client.MessageCallback = func(conn *Connection, input *buffer.Buffer, _ time.Time) {
		clientMu.Lock()
		clientGotMessage = append(clientGotMessage, input.RetrieveBytes(input.ReadableBytes())...)
		clientMu.Unlock()
		select {
		case clientMsg <- struct{}{}:
		default:
		}
	}
	client.Connect()

	waitForConnection(t, client)

	client.Connection().Send([]byte("hello\n"))

	waitFor(t, serverMsg, "server message callback")
	waitFor(t, clientMsg, "client echo")

	serverMu.Lock()
	got := append([]byte(nil), serverGotMessage...)
	recvTime := serverReceiveTime
	serverMu.Unlock()
	if !bytes.Equal(got, []byte("hello\n")) {
		t.Fatalf("server got %q, want %q", got, "hello\n")
	}
	if time.Since(recvTime) > time.Second {
		t.Fatalf("receiveTime too far in the past: %v", recvTime)
	}

	clientMu.Lock()
	gotEcho := append([]byte(nil), clientGotMessage...)
	clientGotMessage = nil
	clientMu.Unlock()
	if !bytes.Equal(gotEcho, []byte("hello\n")) {
		t.Fatalf("client got %q, want %q", gotEcho, "hello\n")
	}

	// S2: "exit\n" triggers "bye\n" then a half-close, observed by the
	// client as a close callback after the message.
	client.Connection().Send([]byte("exit\n"))

	waitFor(t, clientMsg, "bye message")
	clientMu.Lock()
	bye := append([]byte(nil), clientGotMessage...)
	clientMu.Unlock()
	if !bytes.Equal(bye, []byte("bye\n")) {
		t.Fatalf("client got %q, want %q", bye, "bye\n")
	}

	select {
	case <-clientClosed:
	case <-time.After(2 * time.Second):
		t.Fatal("client connection did not observe server half-close")
	}

	server.Stop()
}

func waitForConnection(t *testing.T, client *Client) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn := client.Connection(); conn != nil && conn.Connected() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("client never connected")
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func serverListenAddr(t *testing.T, s *Server) unix.Sockaddr {
	t.Helper()
	addr, err := localAddr(s.acceptor.listenFD)
	if err != nil {
		t.Fatalf("localAddr: %v", err)
	}
	return addr
}
