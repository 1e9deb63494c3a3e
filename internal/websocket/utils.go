package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Sender pushes an event to one client.
type Sender interface {
	Send(event Event, data any) error
}

// Conn serialises writes to a gorilla connection, which allows only one
// concurrent writer. The session clock and guard write from goroutines.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes one envelope.
func (c *Conn) Send(event Event, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(Envelope{Event: event, Data: data})
}

// SendError sends an error event.
func (c *Conn) SendError(msg string) error {
	return c.Send(EventError, ErrorPayload{Message: msg})
}

// Read decodes the next client message. It sets a read deadline.
func (c *Conn) Read(v any) error {
	c.ws.SetReadDeadline(time.Now().Add(readWait))
	return c.ws.ReadJSON(v)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
