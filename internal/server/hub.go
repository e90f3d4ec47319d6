package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ilnaes/downstream/internal/auth"
	"github.com/ilnaes/downstream/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1 << 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Render clients only send commands, which stay far below this.
const maxClientMessage = 64 << 10

type Client struct {
	uid  string
	conn *transport.Conn
}

// Hub is the server side of the websocket transport. Send broadcasts to
// every connected render client; Inbox merges what they send back.
type Hub struct {
	log   *slog.Logger
	inbox chan []byte
	done  chan struct{}
	once  sync.Once

	clients map[*Client]bool
	sync.Mutex // protects clients
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		inbox:   make(chan []byte, transport.DefaultBuffer),
		done:    make(chan struct{}),
		clients: make(map[*Client]bool),
	}
}

// ServeHTTP upgrades a render client connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &Client{uid: r.RemoteAddr, conn: transport.NewConn(ws, maxClientMessage, h.log)}
	if claim, ok := auth.FromContext(r.Context()); ok {
		c.uid = claim.Uid
	}
	h.register(c)
	go h.interact(c)
}

func (h *Hub) register(c *Client) {
	h.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.Unlock()
	h.log.Info("client registered", "client", c.uid, "clients", n)
}

func (h *Hub) unregister(c *Client) {
	h.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.Unlock()
	if ok {
		c.conn.Close()
		h.log.Info("client unregistered", "client", c.uid, "clients", n)
	}
}

// interact forwards the packets of one client until it disconnects.
func (h *Hub) interact(c *Client) {
	defer h.unregister(c)
	for {
		select {
		case p := <-c.conn.Inbox():
			select {
			case h.inbox <- p:
			default:
				h.log.Warn("hub inbox full, dropping packet", "client", c.uid)
			}
		case <-c.conn.Done():
			return
		case <-h.done:
			return
		}
	}
}

// Send queues packet for every client without waiting on the network.
// Clients that are gone or stalled are dropped.
func (h *Hub) Send(packet []byte) error {
	h.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.Unlock()

	for _, c := range clients {
		if err := c.conn.Send(packet); err != nil {
			h.log.Info("write failed", "client", c.uid, "error", err)
			h.unregister(c)
		}
	}
	return nil
}

func (h *Hub) Inbox() <-chan []byte { return h.inbox }

// Clients returns the uids of the connected clients.
func (h *Hub) Clients() []string {
	h.Lock()
	defer h.Unlock()
	out := make([]string, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c.uid)
	}
	return out
}

func (h *Hub) Close() error {
	h.once.Do(func() { close(h.done) })
	h.Lock()
	clients := h.clients
	h.clients = make(map[*Client]bool)
	h.Unlock()
	for c := range clients {
		c.conn.Close()
	}
	return nil
}
