package dashboard

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSHub streams page frames to connected renderers.
type WSHub struct {
	view    *View
	metrics *Metrics
	log     *log.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	stopped bool
}

type wsClient struct {
	conn   *websocket.Conn
	frames <-chan []byte
	cancel func()
	done   chan struct{}
	once   sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		c.cancel()
		close(c.done)
	})
}

func NewWSHub(view *View, metrics *Metrics, logger *log.Logger) *WSHub {
	if logger == nil {
		logger = log.Default()
	}
	return &WSHub{
		view:    view,
		metrics: metrics,
		log:     logger,
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stop disconnects every client.
func (h *WSHub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for c := range h.clients {
		c.close()
	}
}

func (h *WSHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("websocket: upgrade error: %v", err)
		return
	}
	frames, cancel := h.view.Subscribe()
	c := &wsClient{conn: conn, frames: frames, cancel: cancel, done: make(chan struct{})}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		cancel()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.WSClients(1)
	h.log.Printf("websocket: client connected (total: %d)", n)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *WSHub) remove(c *wsClient) {
	c.close()
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.metrics.WSClients(-1)
		h.log.Printf("websocket: client disconnected (total: %d)", n)
	}
}

// readPump only handles control frames; renderers post actions over HTTP.
func (h *WSHub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Printf("websocket: read error: %v", err)
			}
			return
		}
	}
}

func (h *WSHub) writePump(c *wsClient) {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		h.remove(c)
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.frames:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
