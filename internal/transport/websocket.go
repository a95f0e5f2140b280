package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"audiofw/internal/log"
)

// WebSocketTransport implements Transport over a WebSocket server:
// every Send broadcasts to all currently connected clients, dropping
// the message rather than blocking if the internal queue backs up.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	logger    *log.Logger
}

// NewWebSocketTransport creates a WebSocketTransport listening on addr
// and starts serving immediately.
func NewWebSocketTransport(addr string, logger *log.Logger) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		logger:    logger.Named("transport.websocket"),
	}
	wst.start()
	return wst
}

func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)

	wst.server = &http.Server{Addr: wst.addr, Handler: mux}

	go func() {
		wst.logger.Infof("starting server on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			wst.logger.Errorf("server error: %v", err)
		}
	}()

	go wst.handleBroadcasts()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.logger.Errorf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.logger.Infof("client connected, total: %d", n)

	go func() {
		_, _, err := conn.ReadMessage()
		if err != nil {
			wst.clientsMu.Lock()
			delete(wst.clients, conn)
			n := len(wst.clients)
			wst.clientsMu.Unlock()
			conn.Close()
			wst.logger.Infof("client disconnected, total: %d", n)
		}
	}()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(data); err != nil {
				wst.logger.Warnf("error sending to client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues data for broadcast to every connected client. If the
// internal queue is full, the message is dropped rather than blocking
// the caller (the analyzer's worker, typically).
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close shuts down every client connection and the HTTP server.
func (wst *WebSocketTransport) Close() error {
	wst.logger.Infof("closing server")

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
