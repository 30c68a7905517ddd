package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// Bridge streams a user's Redis channel to a websocket connection.
type Bridge struct {
	publisher *Publisher
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

func NewBridge(publisher *Publisher, logger *slog.Logger) *Bridge {
	return &Bridge{
		publisher: publisher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle upgrades the request and forwards uid's events until either side
// closes. The subscription is released when Handle returns.
func (b *Bridge) Handle(w http.ResponseWriter, r *http.Request, uid string) error {
	sub, err := b.publisher.Subscribe(r.Context(), uid)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	observability.RealtimeConnections.Inc()
	defer observability.RealtimeConnections.Dec()

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events := sub.Channel()
	for {
		select {
		case <-closed:
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				b.logger.Debug("realtime write failed", "uid", uid, "error", err)
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readPump discards client frames and reports when the connection is gone.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
