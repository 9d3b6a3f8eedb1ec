package restapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/pkg/log"
)

// maxWSConnections bounds the live event stream the same way FluxForge's
// metrics hub bounds its dashboard connections: a fixed cap rather than
// an unbounded fan-out that a slow client set could turn into a memory
// leak.
const maxWSConnections = 200

const writeDeadline = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHub relays every events.Bus publish to every connected websocket
// client as JSON. One subscriber channel on the bus feeds every
// connection; a client never sees more than events.Capacity buffered
// events before it's dropped from, same as any other bus subscriber.
type wsHub struct {
	bus  *events.Bus
	mu   sync.RWMutex
	conn map[*websocket.Conn]struct{}
	log  log.Logger
}

func newWSHub(bus *events.Bus) *wsHub {
	h := &wsHub{bus: bus, conn: make(map[*websocket.Conn]struct{}), log: log.WithName("ws-hub")}
	go h.run()
	return h
}

// run subscribes once to the bus and fans every event out to every
// currently registered connection, for the lifetime of the process.
func (h *wsHub) run() {
	ch := h.bus.Subscribe()
	for e := range ch {
		h.broadcast(e)
	}
}

func (h *wsHub) broadcast(e events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conn {
		c.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.WriteJSON(e); err != nil {
			h.log.Error(err, "websocket write failed")
			go h.unregister(c)
		}
	}
}

func (h *wsHub) register(c *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conn) >= maxWSConnections {
		return false
	}
	h.conn[c] = struct{}{}
	return true
}

func (h *wsHub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conn[c]; ok {
		delete(h.conn, c)
		c.Close()
	}
}

// serveWS upgrades the request and keeps the connection open until the
// client disconnects or a write fails; it reads and discards incoming
// messages only to notice a client-initiated close.
func (h *handlers) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(err, "websocket upgrade failed")
		return
	}
	if !h.hub.register(conn) {
		conn.Close()
		return
	}
	defer h.hub.unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
