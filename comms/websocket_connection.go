package comms

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 15 * time.Second
)

// The subset of the transport the manager needs. Tests substitute a
// scripted implementation through the Dialer.
type WebSocketConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Make a factory for connections so we can mock the transport in
// tests.
type Dialer interface {
	Dial(ctx context.Context, url string) (WebSocketConn, error)
}

// The websocket connection is not thread safe so we need to
// synchronize it.
type Conn struct {
	conn *websocket.Conn

	read_mu  sync.Mutex
	write_mu sync.Mutex
}

func WrapWS(ws *websocket.Conn) *Conn {
	return &Conn{
		conn: ws,
	}
}

func (self *Conn) ReadMessage() (int, []byte, error) {
	self.read_mu.Lock()
	defer self.read_mu.Unlock()

	return self.conn.ReadMessage()
}

func (self *Conn) WriteMessage(message_type int, message []byte) error {
	self.write_mu.Lock()
	defer self.write_mu.Unlock()

	err := self.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		return err
	}
	return self.conn.WriteMessage(message_type, message)
}

func (self *Conn) Close() error {
	// Close can be called concurrently with all other methods.
	return self.conn.Close()
}

type WSDialer struct{}

func (self WSDialer) Dial(ctx context.Context, url string) (
	WebSocketConn, error) {

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	return WrapWS(ws), nil
}
