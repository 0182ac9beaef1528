package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans service log lines out to stream subscribers, keyed by service
// name ("database", "wordpress", "nginx", "adminer").
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
}

type message struct {
	service string
	payload []byte
}

type subscription struct {
	service string
	client  Subscriber
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			return
		case sub := <-h.register:
			if _, ok := h.clients[sub.service]; !ok {
				h.clients[sub.service] = make(map[Subscriber]struct{})
			}
			h.clients[sub.service][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.service]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.service)
				}
			}
		case msg := <-h.broadcast:
			if clients, ok := h.clients[msg.service]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.service)
				}
			}
		}
	}
}

// Register adds a client to a service stream. A no-op after Shutdown, so
// handlers unwinding during shutdown never block.
func (h *Hub) Register(service string, client Subscriber) {
	select {
	case h.register <- subscription{service: service, client: client}:
	case <-h.done:
	}
}

// Unregister removes a client. A no-op after Shutdown.
func (h *Hub) Unregister(service string, client Subscriber) {
	select {
	case h.unreg <- subscription{service: service, client: client}:
	case <-h.done:
	}
}

// Broadcast sends payload to all subscribers of a service stream.
func (h *Hub) Broadcast(service string, payload []byte) {
	select {
	case h.broadcast <- message{service: service, payload: payload}:
	case <-h.done:
	}
}

// Shutdown closes every subscriber and stops the hub loop.
func (h *Hub) Shutdown() {
	close(h.done)
}
