package server

import (
	"bufio"
	"net/http"
	"sync"
	"time"
)

// heartbeat keeps idle event streams open through proxies.
const heartbeat = 30 * time.Second

// Hub serves the /livereload event stream and broadcasts reload versions to
// every connected client. It implements ports.Reloader.
type Hub struct {
	metrics *metrics

	mu      sync.Mutex
	nextID  int
	clients map[int]*client
	last    string
	closed  bool
}

type client struct {
	ch   chan string
	done chan struct{}
}

func newHub(m *metrics) *Hub {
	return &Hub{metrics: m, clients: make(map[int]*client)}
}

// ServeHTTP streams reload events until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	id, c, ok := h.register()
	if !ok {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.remove(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(": connected\n\n") {
		return
	}

	hb := time.NewTicker(heartbeat)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case version := <-c.ch:
			if !send(event(version)) {
				return
			}
		}
	}
}

func event(version string) string {
	return "event: reload\ndata: " + version + "\n\n"
}

func (h *Hub) register() (int, *client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	c := &client{ch: make(chan string, 8), done: make(chan struct{})}
	id := h.nextID
	h.nextID++
	h.clients[id] = c
	h.metrics.clients.Set(float64(len(h.clients)))
	return id, c, true
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id int) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.done)
	h.metrics.clients.Set(float64(len(h.clients)))
}

// Reload broadcasts version. An empty version or a repeat of the last one is
// ignored. Clients that cannot keep up are dropped.
func (h *Hub) Reload(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || version == "" || version == h.last {
		return
	}
	h.last = version
	h.metrics.reloads.Inc()

	for id, c := range h.clients {
		select {
		case c.ch <- version:
		default:
			h.removeLocked(id)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown disconnects every client and stops future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
}
