package bookingws

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/mentorleofficial/mentorle-api/internal/models"
)

// Hub fans booking lifecycle events out to the connected mentor and mentee.
// It is push-only: clients never send anything the server acts on.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	events     chan *Event
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

type Event struct {
	Type          string `json:"type"`
	BookingID     string `json:"booking_id"`
	MentorID      string `json:"mentor_id"`
	MenteeID      string `json:"mentee_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	ScheduledAt   string `json:"scheduled_at"`
	Timestamp     string `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case event := <-h.events:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BookingUpdated queues a booking event for both participants. Safe to call
// from any goroutine; drops the event if the hub is saturated rather than
// blocking the request path.
func (h *Hub) BookingUpdated(booking *models.Booking) {
	event := &Event{
		Type:          "booking_updated",
		BookingID:     strconv.FormatInt(booking.ID, 10),
		MentorID:      strconv.FormatInt(booking.MentorID, 10),
		MenteeID:      strconv.FormatInt(booking.MenteeID, 10),
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		ScheduledAt:   booking.ScheduledAt.UTC().Format(time.RFC3339),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	select {
	case h.events <- event:
	default:
		log.Printf("booking hub saturated, dropping event for booking %s", event.BookingID)
	}
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("booking hub encode event: %v", err)
		return
	}

	h.sendToUser(event.MentorID, encoded)
	if event.MenteeID != event.MentorID {
		h.sendToUser(event.MenteeID, encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump drains the connection so pings and closes are processed. Inbound
// frames carry no commands.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
