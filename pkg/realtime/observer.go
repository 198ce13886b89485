package realtime

import (
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/balcaopos/balcao/internal/rand"
)

const (
	handleLength = 12

	// DefaultSendTimeout bounds one observer write so an unresponsive
	// socket cannot occupy a fan-out call indefinitely.
	DefaultSendTimeout = 5 * time.Second
)

// WebSocketObserver adapts a gorilla connection to the hub's Observer.
// A mutex serializes writes: gorilla connections support one concurrent
// writer, and sequential writes are what preserves per-observer delivery
// order.
type WebSocketObserver struct {
	handle  string
	conn    *gorilla.Conn
	timeout time.Duration

	connLock sync.Mutex
}

type ObserverOption func(*WebSocketObserver)

func WithSendTimeout(timeout time.Duration) ObserverOption {
	return func(o *WebSocketObserver) { o.timeout = timeout }
}

func NewWebSocketObserver(conn *gorilla.Conn, opts ...ObserverOption) *WebSocketObserver {
	o := &WebSocketObserver{
		handle:  rand.NewToken(handleLength),
		conn:    conn,
		timeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *WebSocketObserver) Handle() string {
	return o.handle
}

func (o *WebSocketObserver) Send(data []byte) error {
	o.connLock.Lock()
	defer o.connLock.Unlock()

	if err := o.conn.SetWriteDeadline(time.Now().Add(o.timeout)); err != nil {
		return err
	}
	return o.conn.WriteMessage(gorilla.TextMessage, data)
}

func (o *WebSocketObserver) Close() error {
	o.connLock.Lock()
	defer o.connLock.Unlock()

	// Best effort: tell the client we're going away before dropping the
	// underlying connection.
	deadline := time.Now().Add(time.Second)
	_ = o.conn.WriteControl(gorilla.CloseMessage,
		gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""), deadline)
	return o.conn.Close()
}
