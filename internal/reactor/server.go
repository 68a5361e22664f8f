package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Server owns an Acceptor on a base loop, an optional loop pool, and a
// name-indexed connection map (§4.6).
type Server struct {
	baseLoop *Loop
	name     string
	addr     unix.Sockaddr

	acceptor *Acceptor
	pool     *LoopPool

	mu          sync.Mutex
	started     bool
	connections map[string]*Connection
	nextConnID  int

	logger Logger

	ConnectionCallback ConnectionCallback
	MessageCallback    MessageCallback
}

// NewServer creates a Server bound to addr, named name (used to synthesize
// connection names), owned by baseLoop.
func NewServer(baseLoop *Loop, name string, addr unix.Sockaddr, reusePort bool, logger Logger) (*Server, error) {
	if logger == nil {
		logger = NopLogger{}
	}
	acceptor, err := NewAcceptor(baseLoop, addr, reusePort)
	if err != nil {
		return nil, err
	}
	s := &Server{
		baseLoop:    baseLoop,
		name:        name,
		addr:        addr,
		acceptor:    acceptor,
		pool:        NewLoopPool(baseLoop, logger),
		connections: make(map[string]*Connection),
		logger:      logger.WithField("server", name),
	}
	acceptor.NewConnectionCallback = s.newConnection
	return s, nil
}

// Start spawns numThreads worker loops (0 keeps everything on baseLoop) and
// begins accepting. Must be called from baseLoop's own goroutine.
func (s *Server) Start(numThreads int) error {
	s.baseLoop.assertInLoopThread()
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	if err := s.pool.Start(numThreads); err != nil {
		return err
	}
	s.acceptor.Listen()
	return nil
}

func (s *Server) newConnection(fd int, peer unix.Sockaddr) {
	s.baseLoop.assertInLoopThread()

	loop := s.pool.GetNextLoop()

	s.mu.Lock()
	s.nextConnID++
	name := fmt.Sprintf("%s#%s#%d", s.name, sockaddrString(s.addr), s.nextConnID)
	s.mu.Unlock()

	local, err := localAddr(fd)
	if err != nil {
		s.logger.WithError(err).Warn("reactor: getsockname failed")
	}

	conn := NewConnection(loop, name, fd, local, peer, s.logger)
	conn.SetConnectionCallback(s.ConnectionCallback)
	conn.SetMessageCallback(s.MessageCallback)
	conn.SetCloseCallback(s.removeConnection)

	s.mu.Lock()
	s.connections[name] = conn
	s.mu.Unlock()

	loop.RunInLoop(conn.connectEstablished)
}

// removeConnection marshals to the base loop, erases the connection from
// the map, then queues connectDestroyed on the connection's own loop, to
// avoid ordering races between map mutation and teardown (§4.6).
func (s *Server) removeConnection(conn *Connection) {
	s.baseLoop.RunInLoop(func() {
		s.mu.Lock()
		delete(s.connections, conn.Name())
		s.mu.Unlock()
		conn.Loop().QueueInLoop(conn.connectDestroyed)
	})
}

// Stop closes the acceptor and force-closes every live connection.
func (s *Server) Stop() {
	s.baseLoop.RunInLoop(func() {
		s.acceptor.Close()
	})

	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.ForceClose()
	}

	s.pool.Shutdown()
}

// ConnectionCount reports the number of live connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

func sockaddrString(a unix.Sockaddr) string {
	switch v := a.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3], v.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", v.Addr, v.Port)
	default:
		return "unknown"
	}
}
