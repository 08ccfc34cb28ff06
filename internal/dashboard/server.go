package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jmerrick/daywatch/internal/config"
)

// Server streams generated day records and anomaly verdicts to
// connected browsers over websockets.
type Server struct {
	config    config.DashboardConfig
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	broadcast chan interface{}
}

// NewServer creates a new dashboard server
func NewServer(cfg config.DashboardConfig) *Server {
	return &Server{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan interface{}, 100),
	}
}

// Publish queues a value for broadcast. Never blocks the simulation;
// drops when the broadcast queue is full.
func (s *Server) Publish(v interface{}) {
	select {
	case s.broadcast <- v:
	default:
		log.Printf("Dashboard queue full, dropping update")
	}
}

// Start starts the dashboard server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go s.broadcastLoop(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/", s.handleIndex)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Printf("Dashboard server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Dashboard server error: %v", err)
		}
	}()

	<-ctx.Done()
	server.Shutdown(context.Background())
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			// Collect failed conns first; removeClient takes the write
			// lock and must not run while the read lock is held.
			var failed []*websocket.Conn
			s.clientsMu.RLock()
			for client := range s.clients {
				if err := client.WriteJSON(message); err != nil {
					log.Printf("WebSocket write error: %v", err)
					failed = append(failed, client)
				}
			}
			s.clientsMu.RUnlock()

			for _, client := range failed {
				client.Close()
				s.removeClient(client)
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	log.Printf("WebSocket client connected")

	// Keep connection alive
	for {
		if _, _, err := conn.NextReader(); err != nil {
			s.removeClient(conn)
			break
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, conn)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Daywatch</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            background: #1a1a1a;
            color: #fff;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
        }
        h1 {
            color: #4CAF50;
        }
        .status {
            color: #4CAF50;
            font-size: 0.9em;
        }
        .verdict {
            background: #2a2a2a;
            padding: 15px;
            margin: 10px 0;
            border-radius: 8px;
            border-left: 4px solid #4CAF50;
        }
        .verdict-alert {
            background: #3a2222;
            border-left: 4px solid #d32f2f;
        }
        .day-stream {
            background: #2a2a2a;
            padding: 20px;
            border-radius: 8px;
            max-height: 400px;
            overflow-y: auto;
            font-family: monospace;
            font-size: 0.9em;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>Daywatch</h1>
        <div class="status" id="status">Connecting to server...</div>

        <h2>Verdicts</h2>
        <div id="verdicts"></div>

        <h2>Generated Days</h2>
        <div class="day-stream" id="day-stream"></div>
    </div>

    <script>
        const ws = new WebSocket('ws://' + window.location.host + '/ws');
        const statusEl = document.getElementById('status');
        const verdictsEl = document.getElementById('verdicts');
        const dayStreamEl = document.getElementById('day-stream');

        ws.onopen = () => {
            statusEl.textContent = 'Connected';
        };

        ws.onclose = () => {
            statusEl.textContent = 'Disconnected';
        };

        ws.onmessage = (event) => {
            const data = JSON.parse(event.data);

            if (data.status !== undefined) {
                // Verdict for one monitored day
                const div = document.createElement('div');
                div.className = data.alert ? 'verdict verdict-alert' : 'verdict';
                div.innerHTML = '<strong>Day ' + data.day + '</strong> - ' +
                    'Score: ' + data.anomaly_counter + ' / ' + data.threshold +
                    ' | ' + data.status;
                verdictsEl.insertBefore(div, verdictsEl.firstChild);

                // Keep only last 20 verdicts
                while (verdictsEl.children.length > 20) {
                    verdictsEl.removeChild(verdictsEl.lastChild);
                }
            } else {
                // Generated day record
                const div = document.createElement('div');
                div.textContent = JSON.stringify(data);
                dayStreamEl.insertBefore(div, dayStreamEl.firstChild);

                // Keep only last 100 days
                while (dayStreamEl.children.length > 100) {
                    dayStreamEl.removeChild(dayStreamEl.lastChild);
                }
            }
        };
    </script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(html))
}
