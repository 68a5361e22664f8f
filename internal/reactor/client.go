package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Client owns a Connector and at most one active connection (§4.6).
type Client struct {
	loop      *Loop
	name      string
	connector *Connector

	retry   bool
	connect bool

	mu   sync.Mutex
	conn *Connection

	logger Logger

	ConnectionCallback ConnectionCallback
	MessageCallback    MessageCallback
}

// NewClient creates a Client that will connect to addr on loop.
func NewClient(loop *Loop, name string, addr unix.Sockaddr, logger Logger) *Client {
	if logger == nil {
		logger = NopLogger{}
	}
	c := &Client{
		loop:      loop,
		name:      name,
		connector: NewConnector(loop, addr),
		connect:   true,
		logger:    logger.WithField("client", name),
	}
	c.connector.NewConnectCallback = c.newConnection
	return c
}

// SetRetry enables/disables automatic reconnection after the active
// connection closes.
func (c *Client) SetRetry(enabled bool) { c.retry = enabled }

// Connect starts the underlying Connector.
func (c *Client) Connect() {
	c.connect = true
	c.connector.Start()
}

// Disconnect tears down the active connection, if any, without retrying.
func (c *Client) Disconnect() {
	c.connect = false
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Shutdown()
	}
}

// Stop aborts any in-flight connect attempt.
func (c *Client) Stop() {
	c.connect = false
	c.connector.Stop()
}

// Connection returns the active connection, or nil if not currently
// connected.
func (c *Client) Connection() *Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) newConnection(fd int) {
	c.loop.assertInLoopThread()

	peer, err := peerAddr(fd)
	if err != nil {
		c.logger.WithError(err).Warn("reactor: getpeername failed")
	}
	local, err := localAddr(fd)
	if err != nil {
		c.logger.WithError(err).Warn("reactor: getsockname failed")
	}

	conn := NewConnection(c.loop, c.name, fd, local, peer, c.logger)
	conn.SetConnectionCallback(c.ConnectionCallback)
	conn.SetMessageCallback(c.MessageCallback)
	conn.SetCloseCallback(c.removeConnection)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	conn.connectEstablished()
}

func (c *Client) removeConnection(conn *Connection) {
	c.loop.QueueInLoop(conn.connectDestroyed)

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	if c.retry && c.connect {
		c.connector.Restart()
	}
}
