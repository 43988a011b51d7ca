package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/chainsift/fraudscore-engine/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for local dashboard
	},
}

// Alert is the payload pushed to stream subscribers when an analyzed
// transaction crosses the alerting threshold.
type Alert struct {
	Type           string             `json:"type"` // Always "suspicious_transaction"
	TransactionID  string             `json:"transactionId"`
	RiskScore      float64            `json:"riskScore"`
	Recommendation string             `json:"recommendation"`
	PerModel       map[string]float64 `json:"perModel"`
	At             time.Time          `json:"at"`
}

// Hub maintains the set of active websocket clients and broadcasts alerts.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			// Write deadline prevents a blocked client from hanging the hub
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := client.WriteMessage(websocket.TextMessage, message)
			if err != nil {
				log.Printf("Websocket write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe handles incoming websocket connections
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	log.Printf("New WebSocket client connected. Total clients: %d", len(h.clients))

	// Keep alive loop; we only push down but must read to notice disconnects
	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("WebSocket client disconnected. Total clients: %d", len(h.clients))
		}()
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				break
			}
		}
	}()
}

// BroadcastAlert pushes a suspicious-transaction alert to every subscriber.
func (h *Hub) BroadcastAlert(a service.Assessment) {
	payload, err := json.Marshal(Alert{
		Type:           "suspicious_transaction",
		TransactionID:  a.TransactionID,
		RiskScore:      a.Decision.RiskScore,
		Recommendation: a.Decision.Recommendation,
		PerModel:       a.Result.PerModel,
		At:             time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Failed to encode alert: %v", err)
		return
	}
	h.broadcast <- payload
}
