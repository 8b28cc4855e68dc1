package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxbot/internal/domain"
	"voxbot/internal/metrics"
)

// transcriptPage is the live transcript view served at /.
const transcriptPage = `<!DOCTYPE html>
<html>
<head><title>VoxBot</title>
<style>
  body { font-family: sans-serif; max-width: 700px; margin: 2em auto; }
  .status { color: #888; font-style: italic; }
  .line { margin: 0.4em 0; }
  .speaker { font-weight: bold; }
</style>
</head>
<body>
<h2>VoxBot transcript</h2>
<div id="status" class="status">connecting...</div>
<div id="log"></div>
<script>
  const log = document.getElementById('log');
  const status = document.getElementById('status');
  const ws = new WebSocket('ws://' + location.host + '/ws');
  ws.onmessage = (e) => {
    const evt = JSON.parse(e.data);
    if (evt.type === 'status') {
      status.textContent = evt.text;
      return;
    }
    const div = document.createElement('div');
    div.className = 'line';
    div.innerHTML = '<span class="speaker"></span>: ';
    div.querySelector('.speaker').textContent = evt.speaker;
    div.appendChild(document.createTextNode(evt.text));
    log.appendChild(div);
    window.scrollTo(0, document.body.scrollHeight);
  };
  ws.onclose = () => { status.textContent = 'disconnected'; };
</script>
</body>
</html>`

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebChannel serves the live transcript page and pushes bus events to every
// connected websocket. It also exposes the Prometheus metrics endpoint.
type WebChannel struct {
	host    string
	port    int
	bus     domain.EventBus
	history []domain.Event
	logger  *slog.Logger
	server  *http.Server

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type WebConfig struct {
	Host string
	Port int
	Bus  domain.EventBus
	// History is replayed to every client on connect so the page does not
	// open blank mid-conversation.
	History []domain.Event
	Logger  *slog.Logger
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	return &WebChannel{
		host:    cfg.Host,
		port:    cfg.Port,
		bus:     cfg.Bus,
		history: cfg.History,
		logger:  cfg.Logger,
		clients: make(map[*wsClient]struct{}),
	}
}

func (w *WebChannel) Name() string { return "web" }

func (w *WebChannel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(rw, transcriptPage)
	})
	mux.HandleFunc("/ws", w.handleUpgrade)
	mux.HandleFunc("/metrics", metrics.Collector.Handler())

	w.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", w.host, w.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	events := w.bus.Subscribe("web")
	defer w.bus.Unsubscribe("web")

	go w.pump(events)

	w.logger.Info("web channel starting", "addr", w.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.closeAllClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (w *WebChannel) pump(events <-chan domain.Event) {
	for evt := range events {
		w.broadcast(evt)
	}
}

func (w *WebChannel) broadcast(evt domain.Event) {
	w.mu.Lock()
	clients := make([]*wsClient, 0, len(w.clients))
	for c := range w.clients {
		clients = append(clients, c)
	}
	w.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.conn.WriteJSON(evt)
		c.mu.Unlock()
		if err != nil {
			w.logger.Debug("dropping websocket client", "error", err)
			w.removeClient(c)
		}
	}
}

func (w *WebChannel) handleUpgrade(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn}

	// Replay stored history before the client joins the live broadcast.
	for _, evt := range w.history {
		client.mu.Lock()
		err := client.conn.WriteJSON(evt)
		client.mu.Unlock()
		if err != nil {
			conn.Close()
			return
		}
	}

	w.mu.Lock()
	w.clients[client] = struct{}{}
	w.mu.Unlock()
	metrics.TranscriptListeners.Inc()
	w.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	// Drain reads so pings are answered; the transcript is one-way.
	go func() {
		defer w.removeClient(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (w *WebChannel) removeClient(c *wsClient) {
	w.mu.Lock()
	_, present := w.clients[c]
	if present {
		delete(w.clients, c)
	}
	w.mu.Unlock()
	if present {
		metrics.TranscriptListeners.Dec()
		c.conn.Close()
	}
}

func (w *WebChannel) closeAllClients() {
	w.mu.Lock()
	clients := make([]*wsClient, 0, len(w.clients))
	for c := range w.clients {
		clients = append(clients, c)
	}
	w.clients = make(map[*wsClient]struct{})
	w.mu.Unlock()
	for _, c := range clients {
		metrics.TranscriptListeners.Dec()
		c.conn.Close()
	}
}
