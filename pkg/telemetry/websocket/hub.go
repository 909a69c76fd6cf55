// Package websocket streams telemetry to browsers.
package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/hamster/pkg/framework"
	"github.com/robotalks/hamster/pkg/telemetry/msgs"
)

// ReadWriter implements PacketReadWriter with binary frames.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// DefaultBacklog is the number of packets queued per client.
const DefaultBacklog = 64

// Hub broadcasts messages to all connected clients. A client too slow to
// keep up loses packets rather than blocking the others.
type Hub struct {
	Backlog int

	lock    sync.Mutex
	clients map[*client]struct{}
	loop    fx.LoopControl
}

type client struct {
	addr  string
	rw    *ReadWriter
	sendC chan []byte
	drops uint64
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{Backlog: DefaultBacklog}
}

// AddToLoop implements LoopAdder. Commands from clients are posted to
// loop.
func (h *Hub) AddToLoop(loop *fx.Loop) {
	h.SetLoop(loop)
}

// SetLoop sets where client commands are posted.
func (h *Hub) SetLoop(loop fx.LoopControl) {
	h.lock.Lock()
	h.loop = loop
	h.lock.Unlock()
}

// Handler serves websocket connections.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// WriteMessage implements telemetry.Sink.
func (h *Hub) WriteMessage(msg fx.Message) error {
	pkt, err := msgs.Marshal(msg)
	if err != nil {
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.sendC <- pkt:
		default:
			c.drops++
			if glog.V(3) {
				glog.Infof("websocket: %s: dropped %d", c.addr, c.drops)
			}
		}
	}
	return nil
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		(*websocket.Conn)(c.rw).Close()
	}
	return nil
}

func (h *Hub) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	backlog := h.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	c := &client{addr: conn.Request().RemoteAddr, rw: New(conn), sendC: make(chan []byte, backlog)}
	glog.Infof("websocket: %s connected", c.addr)

	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[*client]struct{})
	}
	h.clients[c] = struct{}{}
	h.lock.Unlock()

	doneC := make(chan struct{})
	go h.writeLoop(c, doneC)
	h.readLoop(c)

	h.lock.Lock()
	delete(h.clients, c)
	h.lock.Unlock()
	close(doneC)
	glog.Infof("websocket: %s disconnected", c.addr)
}

func (h *Hub) writeLoop(c *client, doneC <-chan struct{}) {
	for {
		select {
		case <-doneC:
			return
		case pkt := <-c.sendC:
			if err := c.rw.WritePacket(pkt); err != nil {
				glog.V(2).Infof("websocket: write: %v", err)
				(*websocket.Conn)(c.rw).Close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(c *client) {
	for {
		pkt, err := c.rw.ReadPacket()
		if err != nil {
			return
		}
		msg, err := msgs.Unmarshal(pkt)
		if err != nil {
			glog.Warningf("websocket: %v", err)
			continue
		}
		if _, ok := msg.(*msgs.LogCommand); !ok {
			glog.Warningf("websocket: unexpected %T", msg)
			continue
		}
		h.lock.Lock()
		loop := h.loop
		h.lock.Unlock()
		if loop != nil {
			loop.PostMessage(msg)
			loop.TriggerNext()
		}
	}
}
